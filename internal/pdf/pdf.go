package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Title heads every document.
const Title = "Structured Notes"

// ErrEmpty is returned when the markup has no content to lay out.
var ErrEmpty = errors.New("no content to render")

const (
	margin     = 20.0
	indentStep = 6.0
	bodySize   = 10.0
	lineHeight = 5.0
)

var headingSizes = map[int]float64{1: 15, 2: 13, 3: 12, 4: 11, 5: 10, 6: 10}

// Notes are UTF-8, so the embedded Go fonts replace the core PDF fonts,
// which only cover cp1252.
const (
	sans = "go"
	mono = "gomono"
)

func addFonts(doc *fpdf.Fpdf) error {
	doc.AddUTF8FontFromBytes(sans, "", goregular.TTF)
	doc.AddUTF8FontFromBytes(sans, "B", gobold.TTF)
	doc.AddUTF8FontFromBytes(sans, "I", goitalic.TTF)
	doc.AddUTF8FontFromBytes(mono, "", gomono.TTF)
	if err := doc.Error(); err != nil {
		return fmt.Errorf("failed to load fonts: %w", err)
	}
	return nil
}

// Render lays out sanitized HTML markup as a letter sized PDF.
func Render(markup string) ([]byte, error) {
	blocks, err := Blocks(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, ErrEmpty
	}
	return layout(blocks)
}

func layout(blocks []Block) ([]byte, error) {
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetTitle(Title, true)
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	if err := addFonts(doc); err != nil {
		return nil, err
	}
	doc.AddPage()

	doc.SetFont(sans, "B", 16)
	doc.MultiCell(0, 8, Title, "", "L", false)
	doc.Ln(4)

	for _, b := range blocks {
		switch b.Kind {
		case Heading:
			doc.Ln(2)
			doc.SetFont(sans, "B", headingSizes[b.Level])
			doc.MultiCell(0, lineHeight+1, b.Text, "", "L", false)
			doc.Ln(1)
		case Bullet, Numbered:
			marker := "•"
			if b.Kind == Numbered {
				marker = strconv.Itoa(b.Ordinal) + "."
			}
			indent := margin + indentStep*float64(b.Level+1)
			doc.SetFont(sans, "", bodySize)
			doc.SetX(indent - indentStep)
			doc.CellFormat(indentStep, lineHeight, marker, "", 0, "L", false, 0, "")
			doc.SetLeftMargin(indent)
			doc.MultiCell(0, lineHeight, b.Text, "", "L", false)
			doc.SetLeftMargin(margin)
			doc.Ln(1)
		case Quote:
			doc.SetFont(sans, "I", bodySize)
			doc.SetTextColor(90, 90, 90)
			doc.SetLeftMargin(margin + indentStep)
			doc.SetX(margin + indentStep)
			doc.MultiCell(0, lineHeight, b.Text, "", "L", false)
			doc.SetLeftMargin(margin)
			doc.SetTextColor(0, 0, 0)
			doc.Ln(2)
		case Code:
			doc.SetFont(mono, "", bodySize-1)
			doc.MultiCell(0, lineHeight-0.5, b.Text, "", "L", false)
			doc.Ln(2)
		case Rule:
			y := doc.GetY() + 1
			w, _ := doc.GetPageSize()
			doc.Line(margin, y, w-margin, y)
			doc.Ln(4)
		default:
			doc.SetFont(sans, "", bodySize)
			doc.MultiCell(0, lineHeight, b.Text, "", "L", false)
			doc.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
