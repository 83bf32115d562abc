package report

import (
	"fmt"
	"io"
	"os"

	"github.com/signintech/gopdf"
)

const (
	gopdfFamily = "DejaVu"
	mmToPt      = 72.0 / 25.4

	marginLeft = 40.0
	marginTop  = 40.0
)

// DefaultFontPaths are the usual DejaVuSans locations on Debian and Alpine.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// FontSet points at TTF files. Missing Bold or Italic fall back to Regular.
type FontSet struct {
	Regular string
	Bold    string
	Italic  string
}

// FindFont returns the first existing path.
func FindFont(paths []string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no font found in %v", paths)
}

// GoPDFEngine renders with TrueType fonts, for transcripts that are not
// Latin-1.
type GoPDFEngine struct {
	fonts FontSet
}

func NewGoPDFEngine(fonts FontSet) *GoPDFEngine {
	return &GoPDFEngine{fonts: fonts}
}

func (e *GoPDFEngine) Write(w io.Writer, doc Document) error {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := e.loadFonts(pdf); err != nil {
		return err
	}
	pdf.SetMargins(marginLeft, marginTop, marginLeft, pageBreakMargin*mmToPt)
	pdf.AddPage()

	l := &gopdfLayout{
		pdf:    pdf,
		width:  gopdf.PageSizeA4.W - 2*marginLeft,
		bottom: gopdf.PageSizeA4.H - pageBreakMargin*mmToPt,
	}

	if err := l.setFont("B", 18); err != nil {
		return err
	}
	if err := l.line(doc.Title, 28, gopdf.Center|gopdf.Top); err != nil {
		return err
	}
	l.space(17)

	if err := l.setFont("B", 14); err != nil {
		return err
	}
	if err := l.line(doc.Subtitle, 28, gopdf.Left|gopdf.Top); err != nil {
		return err
	}
	l.space(11)

	for _, s := range doc.Sections {
		if err := l.setFont("B", 12); err != nil {
			return err
		}
		if err := l.line(s.Title+":", 28, gopdf.Left|gopdf.Top); err != nil {
			return err
		}
		if err := l.setFont("", 12); err != nil {
			return err
		}
		for _, b := range s.Bullets {
			if err := l.block("- "+b, 22); err != nil {
				return err
			}
		}
		l.space(11)
	}

	if err := l.setFont("I", 10); err != nil {
		return err
	}
	if err := l.block(doc.Disclaimer, 20); err != nil {
		return err
	}

	_, err := pdf.WriteTo(w)
	return err
}

func (e *GoPDFEngine) loadFonts(pdf *gopdf.GoPdf) error {
	regular := e.fonts.Regular
	if regular == "" {
		return fmt.Errorf("no regular font set for PDF")
	}
	variants := []struct {
		path  string
		style int
	}{
		{regular, gopdf.Regular},
		{orDefault(e.fonts.Bold, regular), gopdf.Bold},
		{orDefault(e.fonts.Italic, regular), gopdf.Italic},
	}
	for _, v := range variants {
		if err := pdf.AddTTFFontWithOption(gopdfFamily, v.path, gopdf.TtfOption{Style: v.style}); err != nil {
			return fmt.Errorf("add font %s: %w", v.path, err)
		}
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// gopdfLayout tracks the cursor and breaks pages when the next line would
// cross the bottom margin.
type gopdfLayout struct {
	pdf    *gopdf.GoPdf
	width  float64
	bottom float64
}

func (l *gopdfLayout) setFont(style string, size float64) error {
	return l.pdf.SetFont(gopdfFamily, style, size)
}

func (l *gopdfLayout) ensure(h float64) {
	if l.pdf.GetY()+h > l.bottom {
		l.pdf.AddPage()
		l.pdf.SetY(marginTop)
	}
}

func (l *gopdfLayout) space(h float64) {
	l.ensure(h)
	l.pdf.Br(h)
}

func (l *gopdfLayout) line(text string, h float64, align int) error {
	l.ensure(h)
	l.pdf.SetX(marginLeft)
	if err := l.pdf.CellWithOption(&gopdf.Rect{W: l.width, H: h}, text, gopdf.CellOption{Align: align}); err != nil {
		return err
	}
	l.pdf.Br(h)
	return nil
}

// block wraps text to the page width; every wrapped line may start a new page.
func (l *gopdfLayout) block(text string, h float64) error {
	if text == "" {
		return nil
	}
	lines, err := l.pdf.SplitText(text, l.width)
	if err != nil {
		return err
	}
	for _, ln := range lines {
		if err := l.line(ln, h, gopdf.Left|gopdf.Top); err != nil {
			return err
		}
	}
	return nil
}
