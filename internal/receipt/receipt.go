// Package receipt renders the printable pickup receipt of a confirmed
// reservation as a narrow (80mm) PDF ticket.
package receipt

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"storefront/internal/domain"
)

const (
	pageWidth  = 80.0
	pageHeight = 200.0
	margin     = 5.0

	// MaxItems is how many line items fit on the ticket.
	MaxItems = 8
	maxName  = 28

	pickupHint = "Con este código recoja su reserva."
	disclaimer = "¡Atención! Este producto puede agotarse si no retira en tienda pronto. Válido solo por efectivo. No se aceptan pagos por QR."
)

// LogoLoader returns the raw PNG or JPEG bytes of the store logo.
type LogoLoader func() ([]byte, error)

// FileLogo reads the logo from disk on every render.
func FileLogo(path string) LogoLoader {
	return func() ([]byte, error) { return os.ReadFile(path) }
}

type Generator struct {
	StoreName string
	Logo      LogoLoader
	Now       func() time.Time
	Compress  bool
}

func New(storeName string, logo LogoLoader) *Generator {
	return &Generator{StoreName: storeName, Logo: logo, Now: time.Now, Compress: true}
}

// FileName is the download name of a receipt.
func FileName(id int64) string {
	return fmt.Sprintf("reserva-%d.pdf", id)
}

// Render lays out the ticket. Output is byte-identical for identical inputs
// and clock.
func (g *Generator) Render(conf domain.OrderConfirmation, items []domain.LineItem) ([]byte, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	ts := now()

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetCompression(g.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(ts)
	pdf.SetModificationDate(ts)
	pdf.SetTitle(FileName(conf.ID), true)
	pdf.SetCreator(g.StoreName, true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	centered := func(y float64, s string) {
		s = tr(s)
		pdf.Text(pageWidth/2-pdf.GetStringWidth(s)/2, y, s)
	}

	y := 10.0
	pdf.SetFillColor(30, 60, 120)
	pdf.Rect(0, 0, pageWidth, 8, "F")
	y += 6

	if g.drawLogo(pdf, y) {
		y += 20
	} else {
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(30, 60, 120)
		centered(y+4, g.StoreName)
		y += 10
	}
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Helvetica", "B", 20)
	centered(y, fmt.Sprintf("#%d", conf.ID))
	y += 12

	pdf.SetFont("Helvetica", "", 9)
	centered(y, pickupHint)
	y += 8
	pdf.SetFontSize(8)
	pdf.SetTextColor(80, 80, 80)
	centered(y, "Emitido: "+ts.Format("02/01/2006 15:04"))
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFontSize(9)
	y += 8

	pdf.Text(margin, y, tr("Cliente: "+conf.CustomerName))
	y += 6
	pdf.Text(margin, y, tr("CI: "+conf.CustomerID))
	y += 6
	pdf.Text(margin, y, tr("Total: Bs. "+conf.TotalCost.StringFixed(2)))
	y += 10

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(margin, y, pageWidth-margin, y)
	y += 8

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(30, 60, 120)
	pdf.Text(margin, y, "Productos reservados")
	y += 7
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)

	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	for _, it := range items {
		pdf.Text(margin, y, tr("• "+shortName(it.Name)))
		y += 5
		pdf.SetFontSize(8)
		pdf.SetTextColor(80, 80, 80)
		pdf.Text(margin, y, tr(fmt.Sprintf("  x%d · Bs. %s", it.Quantity, it.UnitPrice.StringFixed(2))))
		y += 7
		pdf.SetFontSize(9)
		pdf.SetTextColor(0, 0, 0)
	}

	y += 6
	pdf.SetTextColor(200, 40, 40)
	pdf.SetFont("Helvetica", "B", 8)
	for _, line := range pdf.SplitLines([]byte(tr(disclaimer)), pageWidth-2*margin) {
		pdf.Text(margin, y, string(line))
		y += 3.5
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt %d: %w", conf.ID, err)
	}
	return buf.Bytes(), nil
}

// drawLogo places the logo under the header band. Any failure leaves the
// document usable and reports false so the caller draws the text header.
func (g *Generator) drawLogo(pdf *fpdf.Fpdf, y float64) bool {
	if g.Logo == nil {
		return false
	}
	raw, err := g.Logo()
	if err != nil || len(raw) == 0 {
		return false
	}
	var kind string
	switch http.DetectContentType(raw) {
	case "image/png":
		kind = "PNG"
	case "image/jpeg":
		kind = "JPG"
	default:
		return false
	}
	opts := fpdf.ImageOptions{ImageType: kind}
	pdf.RegisterImageOptionsReader("logo", opts, bytes.NewReader(raw))
	if !pdf.Ok() {
		pdf.ClearError()
		return false
	}
	pdf.ImageOptions("logo", pageWidth/2-15, y, 30, 15, false, opts, 0, "")
	if !pdf.Ok() {
		pdf.ClearError()
		return false
	}
	return true
}

func shortName(name string) string {
	if utf8.RuneCountInString(name) <= maxName {
		return name
	}
	return string([]rune(name)[:maxName-1]) + "…"
}
