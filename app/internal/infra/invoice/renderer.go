package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

// Issuer is the seller block printed on every invoice.
type Issuer struct {
	Name      string
	Address   string
	VATNumber string
}

// Renderer lays out A4 tax invoices. Output depends only on the order and
// the issuer, so the same order always yields the same bytes.
type Renderer struct {
	issuer   Issuer
	compress bool
}

func NewRenderer(issuer Issuer) *Renderer {
	if strings.TrimSpace(issuer.Name) == "" {
		issuer.Name = "Gallery"
	}
	return &Renderer{issuer: issuer, compress: true}
}

const (
	margin    = 15.0
	lineH     = 5.0
	colDesc   = 100.0
	colQty    = 20.0
	colUnit   = 30.0
	colAmount = 30.0
)

func (r *Renderer) Render(o *domorder.Order) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("invoice: nil order")
	}
	issued := o.CreatedAt
	if o.PaidAt != nil {
		issued = *o.PaidAt
	}
	issued = issued.UTC()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(issued)
	pdf.SetModificationDate(issued)
	pdf.SetTitle("Tax invoice "+o.Reference, true)
	pdf.SetAuthor(r.issuer.Name, true)
	pdf.SetCreator(r.issuer.Name, true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, lineH, tr("Thank you for supporting independent art. "+r.issuer.Name), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	r.header(pdf, tr)
	r.meta(pdf, tr, o, issued)
	r.billTo(pdf, tr, o)
	r.lines(pdf, tr, o)
	r.totals(pdf, tr, o)
	r.payment(pdf, tr, o)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("invoice: render %s: %w", o.Reference, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(110, 9, tr(r.issuer.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, "TAX INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range addressLines(r.issuer.Address) {
		pdf.CellFormat(110, 4.5, tr(line), "", 1, "L", false, 0, "")
	}
	if r.issuer.VATNumber != "" {
		pdf.CellFormat(110, 4.5, tr("VAT no. "+r.issuer.VATNumber), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
	w, _ := pdf.GetPageSize()
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(margin, pdf.GetY(), w-margin, pdf.GetY())
	pdf.Ln(4)
}

func (r *Renderer) meta(pdf *fpdf.Fpdf, tr func(string) string, o *domorder.Order, issued time.Time) {
	rows := [][2]string{
		{"Invoice number", o.Reference},
		{"Issue date", issued.Format("02 January 2006")},
		{"Order status", string(o.Status)},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, lineH+1, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, lineH+1, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (r *Renderer) billTo(pdf *fpdf.Fpdf, tr func(string) string, o *domorder.Order) {
	s := o.Shipping
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, lineH+1, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	cityLine := strings.TrimSpace(strings.Join(nonEmpty(s.City, s.Province, s.PostalCode), ", "))
	for _, line := range nonEmpty(s.Name, s.Line1, s.Line2, cityLine, s.Country, s.Email, s.Phone) {
		pdf.CellFormat(0, lineH, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (r *Renderer) lines(pdf *fpdf.Fpdf, tr func(string) string, o *domorder.Order) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.SetDrawColor(200, 200, 200)
	pdf.CellFormat(colDesc, 7, "Description", "B", 0, "L", true, 0, "")
	pdf.CellFormat(colQty, 7, "Qty", "B", 0, "R", true, 0, "")
	pdf.CellFormat(colUnit, 7, "Unit price", "B", 0, "R", true, 0, "")
	pdf.CellFormat(colAmount, 7, "Amount", "B", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range o.Items {
		desc := item.Title
		if item.VariantName != "" {
			desc += " - " + item.VariantName
		}
		pdf.CellFormat(colDesc, 7, tr(truncate(desc, 55)), "B", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, 7, fmt.Sprintf("%d", item.Quantity), "B", 0, "R", false, 0, "")
		pdf.CellFormat(colUnit, 7, formatAmount(item.UnitPrice), "B", 0, "R", false, 0, "")
		pdf.CellFormat(colAmount, 7, formatAmount(item.LineTotal()), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(3)
}

func (r *Renderer) totals(pdf *fpdf.Fpdf, tr func(string) string, o *domorder.Order) {
	labelW := colUnit + 10
	offset := colDesc + colQty + colUnit + colAmount - labelW - colAmount
	rows := []struct {
		label  string
		amount decimal.Decimal
		bold   bool
	}{
		{"Subtotal", o.Subtotal, false},
		{"Shipping", o.ShippingFee, false},
		{"Total (" + o.Currency + ")", o.Total, true},
	}
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(offset, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(labelW, 6, tr(row.label), "", 0, "R", false, 0, "")
		pdf.CellFormat(colAmount, 6, formatAmount(row.amount), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *Renderer) payment(pdf *fpdf.Fpdf, tr func(string) string, o *domorder.Order) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, lineH+1, tr(fmt.Sprintf("Payment: %s via %s", o.PaymentStatus, providerName(o.PaymentProvider))), "", 1, "L", false, 0, "")
	if o.TrackingNumber != "" {
		pdf.CellFormat(0, lineH+1, tr("Tracking number: "+o.TrackingNumber), "", 1, "L", false, 0, "")
	}
}

func providerName(p domorder.PaymentProvider) string {
	switch p {
	case domorder.ProviderStripe:
		return "Stripe"
	case domorder.ProviderYoco:
		return "Yoco"
	}
	return string(p)
}

// formatAmount renders 12345.5 as "12 345.50".
func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + "." + frac
}

func addressLines(address string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(address, func(r rune) bool { return r == '\n' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
