// Package dashboard serves the recruiter web UI: a job form with CV uploads
// and the ranked scorecards produced by the pipeline.
package dashboard

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/agents"
	"github.com/spigell/hiresense/internal/documents"
	"github.com/spigell/hiresense/internal/hiring"
)

//go:embed templates
var templatesFS embed.FS

const (
	DefaultAddr = ":8501"

	DefaultTopN = 5
	MaxTopN     = 20

	defaultMaxUpload  = 32 << 20
	defaultKeepResult = 100
	shutdownTimeout   = 10 * time.Second
)

// Runner executes the pipeline over one job description and uploaded CVs.
type Runner interface {
	Run(ctx context.Context, jds []*hiring.JobDescription, docs []documents.Document) (*agents.Result, error)
}

type Config struct {
	Addr string `mapstructure:"addr"`
	// MaxUploadBytes bounds the in-memory part of a multipart upload.
	MaxUploadBytes int64 `mapstructure:"max-upload-bytes"`
	// KeepResults is the number of finished runs kept for CSV download.
	KeepResults int `mapstructure:"keep-results"`
}

// Server is the dashboard HTTP application.
type Server struct {
	cfg      Config
	runner   Runner
	logger   *zap.Logger
	policy   *bluemonday.Policy
	validate *validator.Validate
	results  *resultStore

	// the memory store is reset by every run, so runs are serialized
	runMu sync.Mutex

	extract func(name string, data []byte) (documents.Document, error)
}

func New(cfg Config, runner Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.KeepResults <= 0 {
		cfg.KeepResults = defaultKeepResult
	}

	return &Server{
		cfg:      cfg,
		runner:   runner,
		logger:   logger,
		policy:   bluemonday.StrictPolicy(),
		validate: validator.New(),
		results:  newResultStore(cfg.KeepResults),
		extract:  documents.FromPDFBytes,
	}
}

// Handler builds the gin engine with all routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes

	r.SetHTMLTemplate(template.Must(
		template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html"),
	))

	r.GET("/", s.index)
	r.POST("/process", s.process)
	r.GET("/results/:id", s.result)
	r.GET("/results/:id/csv", s.resultCSV)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve dashboard: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down dashboard")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown dashboard: %w", err)
	}
	return nil
}

var templateFuncs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"inc": func(i int) int { return i + 1 },
}

// resultStore keeps the scorecards of the most recent runs.
type resultStore struct {
	mu    sync.Mutex
	limit int
	order []string
	byID  map[string]*runResult
}

type runResult struct {
	RunID    string
	JobTitle string
	Cards    []hiring.Scorecard
}

func newResultStore(limit int) *resultStore {
	return &resultStore{limit: limit, byID: make(map[string]*runResult)}
}

func (r *resultStore) put(res *runResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[res.RunID]; !ok {
		r.order = append(r.order, res.RunID)
	}
	r.byID[res.RunID] = res

	for len(r.order) > r.limit {
		delete(r.byID, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *resultStore) get(id string) (*runResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.byID[id]
	return res, ok
}
