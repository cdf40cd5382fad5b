package report

import (
	"github.com/go-pdf/fpdf"
)

type rgb [3]int

var (
	colorTitle    = rgb{30, 64, 175}
	colorSubtitle = rgb{71, 85, 105}
	colorMuted    = rgb{100, 116, 139}
	colorFooter   = rgb{148, 163, 184}
	colorText     = rgb{30, 41, 59}
	colorBody     = rgb{51, 65, 85}
	colorRule     = rgb{203, 213, 225}

	colorGreenBg = rgb{220, 252, 231}
	colorGreenFg = rgb{21, 128, 61}
	colorRedBg   = rgb{254, 226, 226}
	colorRedFg   = rgb{220, 38, 38}
	colorAmberBg = rgb{254, 243, 199}
	colorAmberFg = rgb{217, 119, 6}
	colorHeadBg  = rgb{241, 245, 249}
	colorAltBg   = rgb{248, 250, 252}
	colorWhite   = rgb{255, 255, 255}
	colorBlue    = rgb{68, 114, 196}
	colorBar     = rgb{59, 130, 246}
	colorTotalBg = rgb{226, 232, 240}
)

const (
	margin     = 14.0
	lineHeight = 6.0
	rowHeight  = 6.0
)

// doc wraps fpdf with the helpers both reports use. Text goes through the
// cp1252 translator so UTF-8 titles render with the core fonts.
type doc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDoc() *doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin+6)
	d := &doc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin)
		d.font("", 8, colorFooter)
		pdf.CellFormat(0, 5, d.tr(footerText), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return d
}

func (d *doc) font(style string, size float64, c rgb) {
	d.pdf.SetFont("Helvetica", style, size)
	d.pdf.SetTextColor(c[0], c[1], c[2])
}

func (d *doc) fill(c rgb) {
	d.pdf.SetFillColor(c[0], c[1], c[2])
}

func (d *doc) centered(text string, h float64) {
	d.pdf.CellFormat(0, h, d.tr(text), "", 1, "C", false, 0, "")
}

func (d *doc) line(text string) {
	d.pdf.CellFormat(0, lineHeight, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *doc) heading(text string, c rgb) {
	d.font("BU", 13, c)
	d.line(text)
	d.pdf.Ln(2)
}

func (d *doc) rule() {
	w, _ := d.pdf.GetPageSize()
	y := d.pdf.GetY()
	d.pdf.SetDrawColor(colorRule[0], colorRule[1], colorRule[2])
	d.pdf.Line(margin, y, w-margin, y)
	d.pdf.Ln(4)
}

// ensure starts a new page when fewer than need millimetres remain.
func (d *doc) ensure(need float64) {
	_, h := d.pdf.GetPageSize()
	_, _, _, bottom := d.pdf.GetMargins()
	if d.pdf.GetY()+need > h-bottom {
		d.pdf.AddPage()
	}
}

// row draws one table row of cells with the given widths.
func (d *doc) row(widths []float64, cells []string, bg rgb, align string) {
	d.fill(bg)
	for i, w := range widths {
		d.pdf.CellFormat(w, rowHeight, d.tr(cells[i]), "", 0, align, true, 0, "")
	}
	d.pdf.Ln(-1)
}

func (d *doc) save(path string) error {
	return d.pdf.OutputFileAndClose(path)
}
