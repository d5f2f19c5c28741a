package dashboard

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hiresense/internal/agents"
	"github.com/spigell/hiresense/internal/documents"
	"github.com/spigell/hiresense/internal/hiring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	calls  int
	jds    []*hiring.JobDescription
	docs   []documents.Document
	result *agents.Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, jds []*hiring.JobDescription, docs []documents.Document) (*agents.Result, error) {
	f.calls++
	f.jds = jds
	f.docs = docs
	return f.result, f.err
}

func selection(scores map[string]float64) *agents.Result {
	selected := &hiring.Candidates{}
	for id, score := range scores {
		selected.Items = append(selected.Items, &hiring.Candidate{
			ID:           id,
			GradeScore:   score,
			UpdatedScore: score,
			Explanation:  "Candidate '" + id + "': overall: strong match",
		})
	}
	return &agents.Result{RunID: "run-42", Selected: selected, Scored: selected}
}

func fakeExtract(name string, data []byte) (documents.Document, error) {
	if string(data) == "broken" {
		return documents.Document{}, errors.New("not a pdf")
	}
	return documents.Document{Name: name, Text: string(data)}, nil
}

func newTestServer(runner Runner) (*Server, http.Handler) {
	s := New(Config{}, runner, nil)
	s.extract = fakeExtract
	return s, s.Handler()
}

type upload struct {
	name    string
	content string
}

func processRequest(t *testing.T, fields map[string]string, uploads ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, u := range uploads {
		part, err := w.CreateFormFile(uploadField, u.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte(u.content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/process", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexAndHealth(t *testing.T) {
	_, h := newTestServer(&fakeRunner{})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "HireSense Dashboard") || !strings.Contains(rec.Body.String(), `value="5"`) {
		t.Fatalf("unexpected index page:\n%s", rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestProcessRequiresAllFields(t *testing.T) {
	cases := map[string]struct {
		fields  map[string]string
		uploads []upload
	}{
		"missing title": {
			fields:  map[string]string{"job_description": "Go"},
			uploads: []upload{{"a.pdf", "text"}},
		},
		"markup only description": {
			fields:  map[string]string{"job_title": "Dev", "job_description": "<script>alert(1)</script>"},
			uploads: []upload{{"a.pdf", "text"}},
		},
		"no uploads": {
			fields: map[string]string{"job_title": "Dev", "job_description": "Go"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			runner := &fakeRunner{}
			_, h := newTestServer(runner)

			rec := serve(h, processRequest(t, tc.fields, tc.uploads...))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), msgRequired) {
				t.Fatalf("expected required message:\n%s", rec.Body.String())
			}
			if runner.calls != 0 {
				t.Fatal("pipeline must not run")
			}
		})
	}
}

func TestProcessRejectsInvalidInput(t *testing.T) {
	fields := map[string]string{"job_title": "Dev", "job_description": "Go", "top_n": "21"}

	runner := &fakeRunner{}
	_, h := newTestServer(runner)

	rec := serve(h, processRequest(t, fields, upload{"a.pdf", "text"}))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), msgTopN) {
		t.Fatalf("expected top n error, got %d:\n%s", rec.Code, rec.Body.String())
	}

	fields["top_n"] = "3"
	rec = serve(h, processRequest(t, fields, upload{"a.pdf", "text"}, upload{"b.docx", "text"}))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Only PDF files are accepted: b.docx") {
		t.Fatalf("expected pdf error, got %d:\n%s", rec.Code, rec.Body.String())
	}
	if runner.calls != 0 {
		t.Fatal("pipeline must not run")
	}
}

func TestProcessRanksTopCandidates(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	runner := &fakeRunner{result: selection(map[string]float64{"a.pdf": 0.9, "b.pdf": 0.5, "c.pdf": 0.7})}
	s := New(Config{}, runner, zap.New(core))
	s.extract = fakeExtract
	h := s.Handler()

	fields := map[string]string{
		"job_title":       "Backend <b>Engineer</b>",
		"job_description": "Build R&D services in <i>Go</i>",
		"top_n":           "2",
	}
	rec := serve(h, processRequest(t, fields,
		upload{"a.pdf", "alice"},
		upload{"B.PDF", "bob"},
		upload{"broken.pdf", "broken"},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d:\n%s", rec.Code, rec.Body.String())
	}

	if runner.calls != 1 {
		t.Fatalf("expected one run, got %d", runner.calls)
	}
	if got := runner.jds[0]; got.Title != "Backend Engineer" || got.Description != "Build R&D services in Go" {
		t.Fatalf("expected sanitized job description, got %+v", got)
	}
	var names []string
	for _, doc := range runner.docs {
		names = append(names, doc.Name)
	}
	if !reflect.DeepEqual(names, []string{"a.pdf", "B.PDF"}) {
		t.Fatalf("unexpected documents %v", names)
	}

	body := rec.Body.String()
	first := strings.Index(body, "#1 - a.pdf (Match Score: 90.00%)")
	second := strings.Index(body, "#2 - c.pdf (Match Score: 70.00%)")
	if first < 0 || second < first {
		t.Fatalf("expected ranked scorecards:\n%s", body)
	}
	if strings.Contains(body, "b.pdf") {
		t.Fatal("only the top two candidates must be shown")
	}
	if !strings.Contains(body, "/results/run-42/csv") {
		t.Fatal("expected csv download link")
	}

	if logs.FilterMessage("extracting pdf text").Len() != 1 {
		t.Fatal("expected broken upload to be logged")
	}
	requests := logs.FilterMessage("request").All()
	if len(requests) != 1 || requests[0].ContextMap()["request_id"] == "" {
		t.Fatalf("expected request log with id, got %+v", requests)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/results/run-42/csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected csv status %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != fmt.Sprintf("attachment; filename=%q", csvFileName) {
		t.Fatalf("unexpected disposition %q", got)
	}
	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 || records[0][0] != "candidate" || records[1][0] != "a.pdf" || records[2][0] != "c.pdf" {
		t.Fatalf("unexpected csv %v", records)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/results/run-42", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "c.pdf") {
		t.Fatalf("unexpected result page %d", rec.Code)
	}
}

func TestProcessRenamesUploadsWithSameName(t *testing.T) {
	runner := &fakeRunner{result: selection(map[string]float64{"cv.pdf": 0.9, "cv-2.pdf": 0.8})}
	_, h := newTestServer(runner)

	fields := map[string]string{"job_title": "Dev", "job_description": "Write Go", "top_n": "5"}
	rec := serve(h, processRequest(t, fields,
		upload{"cv.pdf", "alice"},
		upload{"cv.pdf", "carol"},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d:\n%s", rec.Code, rec.Body.String())
	}

	var names []string
	for _, doc := range runner.docs {
		names = append(names, doc.Name+"="+doc.Text)
	}
	if !reflect.DeepEqual(names, []string{"cv.pdf=alice", "cv-2.pdf=carol"}) {
		t.Fatalf("expected distinct candidate names, got %v", names)
	}
}

func TestProcessWithoutResults(t *testing.T) {
	fields := map[string]string{"job_title": "Dev", "job_description": "Go"}

	runner := &fakeRunner{result: selection(nil)}
	_, h := newTestServer(runner)

	rec := serve(h, processRequest(t, fields, upload{"a.pdf", "alice"}))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "No results were generated") {
		t.Fatalf("expected empty result warning, got %d:\n%s", rec.Code, rec.Body.String())
	}

	// unreadable uploads never reach the pipeline
	runner.calls = 0
	rec = serve(h, processRequest(t, fields, upload{"a.pdf", "broken"}))
	if !strings.Contains(rec.Body.String(), "No results were generated") || runner.calls != 0 {
		t.Fatalf("expected warning without a run, calls %d", runner.calls)
	}
}

func TestProcessPipelineError(t *testing.T) {
	fields := map[string]string{"job_title": "Dev", "job_description": "Go"}
	_, h := newTestServer(&fakeRunner{err: errors.New("cv_grader: embed failed")})

	rec := serve(h, processRequest(t, fields, upload{"a.pdf", "alice"}))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !regexp.MustCompile(`An error occurred: cv_grader: embed failed`).MatchString(rec.Body.String()) {
		t.Fatalf("expected error message:\n%s", rec.Body.String())
	}
}

func TestUnknownResult(t *testing.T) {
	_, h := newTestServer(&fakeRunner{})

	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/results/missing/csv", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/results/missing", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestResultStoreEvictsOldest(t *testing.T) {
	store := newResultStore(2)
	for _, id := range []string{"a", "b", "c"} {
		store.put(&runResult{RunID: id})
	}
	if _, ok := store.get("a"); ok {
		t.Fatal("expected oldest result to be evicted")
	}
	for _, id := range []string{"b", "c"} {
		if _, ok := store.get(id); !ok {
			t.Fatalf("expected %s to be kept", id)
		}
	}
}
