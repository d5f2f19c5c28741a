package dashboard

import (
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/documents"
	"github.com/spigell/hiresense/internal/hiring"
)

const (
	uploadField = "cvs"

	msgRequired  = "Please fill in all required fields"
	msgTopN      = "Number of top candidates must be between 1 and 20"
	msgNoResults = "No results were generated. Please check the input data and try again."

	csvFileName = "hiresense_results.csv"
)

type jobForm struct {
	Title       string `form:"job_title" validate:"required"`
	Description string `form:"job_description" validate:"required"`
	TopN        int    `form:"top_n" validate:"min=1,max=20"`
}

type pageData struct {
	Form    jobForm
	Error   string
	Warning string
	Result  *runResult
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{Form: jobForm{TopN: DefaultTopN}})
}

func (s *Server) process(c *gin.Context) {
	log := requestLog(c)

	var form jobForm
	if err := c.ShouldBind(&form); err != nil {
		log.Debug("binding form", zap.Error(err))
		s.renderError(c, http.StatusBadRequest, form, msgTopN)
		return
	}
	if form.TopN == 0 {
		form.TopN = DefaultTopN
	}
	form.Title = s.sanitize(form.Title)
	form.Description = s.sanitize(form.Description)

	var files []*multipart.FileHeader
	if mf, err := c.MultipartForm(); err == nil {
		files = mf.File[uploadField]
	}

	if err := s.validate.Struct(form); err != nil || len(files) == 0 {
		msg := msgRequired
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "TopN" {
			msg = msgTopN
		}
		s.renderError(c, http.StatusBadRequest, form, msg)
		return
	}

	docs := make([]documents.Document, 0, len(files))
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !strings.EqualFold(filepath.Ext(name), documents.ExtPDF) {
			s.renderError(c, http.StatusBadRequest, form, fmt.Sprintf("Only PDF files are accepted: %s", name))
			return
		}

		data, err := readUpload(fh)
		if err != nil {
			log.Warn("reading upload", zap.String("file", name), zap.Error(err))
			continue
		}
		doc, err := s.extract(name, data)
		if err != nil {
			log.Warn("extracting pdf text", zap.String("file", name), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		c.HTML(http.StatusOK, "index.html", pageData{Form: form, Warning: msgNoResults})
		return
	}
	docs = documents.UniqueNames(docs)

	jds := []*hiring.JobDescription{{Title: form.Title, Description: form.Description}}

	s.runMu.Lock()
	result, err := s.runner.Run(c.Request.Context(), jds, docs)
	s.runMu.Unlock()
	if err != nil {
		log.Error("pipeline failed", zap.Error(err))
		s.renderError(c, http.StatusInternalServerError, form, fmt.Sprintf("An error occurred: %v", err))
		return
	}

	top := result.Selected.Top(form.TopN)
	if top.Len() == 0 {
		c.HTML(http.StatusOK, "index.html", pageData{Form: form, Warning: msgNoResults})
		return
	}

	res := &runResult{RunID: result.RunID, JobTitle: form.Title, Cards: top.Scorecards()}
	s.results.put(res)

	log.Info("candidates ranked",
		zap.String("run_id", res.RunID),
		zap.Int("uploaded", len(files)),
		zap.Int("shown", len(res.Cards)),
	)

	c.HTML(http.StatusOK, "index.html", pageData{Form: form, Result: res})
}

func (s *Server) result(c *gin.Context) {
	res, ok := s.results.get(c.Param("id"))
	if !ok {
		c.HTML(http.StatusNotFound, "index.html", pageData{
			Form:  jobForm{TopN: DefaultTopN},
			Error: "Result not found",
		})
		return
	}
	c.HTML(http.StatusOK, "index.html", pageData{
		Form:   jobForm{Title: res.JobTitle, TopN: len(res.Cards)},
		Result: res,
	})
}

func (s *Server) resultCSV(c *gin.Context) {
	res, ok := s.results.get(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "result not found")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvFileName))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)

	if err := hiring.WriteScorecardsCSV(c.Writer, res.Cards); err != nil {
		requestLog(c).Error("writing results csv", zap.Error(err))
	}
}

func (s *Server) renderError(c *gin.Context, status int, form jobForm, msg string) {
	if form.TopN == 0 {
		form.TopN = DefaultTopN
	}
	c.HTML(status, "index.html", pageData{Form: form, Error: msg})
}

// sanitize strips markup and returns plain text.
func (s *Server) sanitize(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
