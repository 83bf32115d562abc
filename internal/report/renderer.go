package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	fileNamePrefix = "Report_"
	fileExt        = ".pdf"

	// Vertical space kept free at the bottom of each page before breaking.
	pageBreakMargin = 10.0
)

// Engine draws a Document as PDF bytes.
type Engine interface {
	Write(w io.Writer, doc Document) error
}

// Renderer writes documents into a directory using an Engine.
type Renderer struct {
	engine Engine
	dir    string
	log    logrus.FieldLogger
}

// NewEngine picks an engine by name. "gopdf" without a regular font looks
// in DefaultFontPaths.
func NewEngine(name string, fonts FontSet) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fpdf":
		return NewFPDFEngine(), nil
	case "gopdf":
		if fonts.Regular == "" {
			font, err := FindFont(DefaultFontPaths)
			if err != nil {
				return nil, fmt.Errorf("failed to load font for PDF, ensure ttf-dejavu is installed: %w", err)
			}
			fonts.Regular = font
		}
		return NewGoPDFEngine(fonts), nil
	default:
		return nil, fmt.Errorf("unknown report engine %q", name)
	}
}

func NewRenderer(engine Engine, dir string, log logrus.FieldLogger) *Renderer {
	return &Renderer{engine: engine, dir: dir, log: log}
}

// FileName derives the output name from the topic.
func FileName(topic string) string {
	name := strings.TrimSpace(topic)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	return fileNamePrefix + name + fileExt
}

// Render writes the document into the output directory and returns its path.
// The file only appears under its final name once fully written; on failure
// the path is empty and the error wraps ErrRenderFault.
func (r *Renderer) Render(doc Document) (string, error) {
	return r.RenderIn("", doc)
}

// RenderIn is Render into a single-level subdirectory of the output
// directory. Reports rendered under different subdirectories never share a
// path.
func (r *Renderer) RenderIn(subdir string, doc Document) (string, error) {
	dir := r.dir
	if subdir != "" {
		if subdir != filepath.Base(subdir) || subdir == "." || subdir == ".." {
			return "", fmt.Errorf("%w: bad output subdirectory %q", ErrInvalidInput, subdir)
		}
		dir = filepath.Join(r.dir, subdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output dir: %v", ErrRenderFault, err)
	}

	final := filepath.Join(dir, FileName(doc.Topic))
	tmp, err := os.CreateTemp(dir, ".report-*.pdf.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrRenderFault, err)
	}

	if err := r.engine.Write(tmp, doc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrRenderFault, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: close temp file: %v", ErrRenderFault, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: move into place: %v", ErrRenderFault, err)
	}

	r.log.WithField("path", final).Info("report written")
	return final, nil
}
