// Package documents loads candidate CVs from PDF and plain-text files.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

const (
	ExtPDF = ".pdf"
	ExtTXT = ".txt"
)

var ErrEmptyDocument = errors.New("document has no text")

// Document is a CV identified by its file name.
type Document struct {
	Name string
	Text string
}

// Loader reads CV files from disk.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Supported reports whether the file extension is a readable CV format.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtPDF, ExtTXT:
		return true
	default:
		return false
	}
}

// LoadFolder reads every supported file of dir in name order. Unreadable and
// empty files are skipped. The returned count is the number of supported files seen.
func (l *Loader) LoadFolder(ctx context.Context, dir string) ([]Document, int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("cv folder: %w", err)
	}
	if !info.IsDir() {
		return nil, 0, fmt.Errorf("cv folder %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read cv folder: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		docs      []Document
		processed int
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, processed, err
		}

		name := entry.Name()
		if entry.IsDir() || !Supported(name) {
			l.logger.Debug("skipping unsupported file", zap.String("file", name))
			continue
		}
		processed++

		path := filepath.Join(dir, name)
		var text string
		switch strings.ToLower(filepath.Ext(name)) {
		case ExtPDF:
			text, err = TextFromPDFFile(path)
			if err != nil {
				l.logger.Warn("reading pdf", zap.String("file", name), zap.Error(err))
				text = ""
			}
		case ExtTXT:
			data, err := os.ReadFile(path)
			if err != nil {
				l.logger.Warn("skipping unreadable file", zap.String("file", name), zap.Error(err))
				continue
			}
			text = string(data)
		}

		if strings.TrimSpace(text) == "" {
			l.logger.Warn("skipping file without text", zap.String("file", name))
			continue
		}

		docs = append(docs, Document{Name: name, Text: text})
	}

	if processed == 0 {
		l.logger.Warn("no supported cv files found", zap.String("folder", dir))
	}

	l.logger.Debug("cv folder loaded",
		zap.String("folder", dir),
		zap.Int("processed", processed),
		zap.Int("documents", len(docs)),
	)

	return docs, processed, nil
}

// TextFromPDFFile extracts the plain text of a PDF file.
func TextFromPDFFile(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return plainText(r)
}

// FromPDFBytes builds a document from an uploaded PDF.
func FromPDFBytes(name string, data []byte) (Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("open pdf %s: %w", name, err)
	}

	text, err := plainText(r)
	if err != nil {
		return Document{}, fmt.Errorf("read pdf %s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return Document{}, fmt.Errorf("%s: %w", name, ErrEmptyDocument)
	}

	return Document{Name: name, Text: text}, nil
}

func plainText(r *pdf.Reader) (string, error) {
	b, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// UniqueNames returns docs with repeated names suffixed "-2", "-3" before the
// extension, so "cv.pdf" uploaded twice becomes "cv.pdf" and "cv-2.pdf".
// Names are candidate ids and must not collide.
func UniqueNames(docs []Document) []Document {
	taken := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		taken[doc.Name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(docs))
	out := make([]Document, len(docs))
	for i, doc := range docs {
		if _, dup := seen[doc.Name]; dup {
			ext := filepath.Ext(doc.Name)
			base := strings.TrimSuffix(doc.Name, ext)
			for n := 2; ; n++ {
				name := fmt.Sprintf("%s-%d%s", base, n, ext)
				if _, used := taken[name]; !used {
					doc.Name = name
					taken[name] = struct{}{}
					break
				}
			}
		}
		seen[doc.Name] = struct{}{}
		out[i] = doc
	}
	return out
}
