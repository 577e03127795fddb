package document

import (
	"bytes"
	"text/template"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"pcstore/pkg/shop/domain/model"
)

const invoiceTemplate = `{{.StoreName}}
INVOICE {{.Doc.InvoiceNumber}}
Order:    {{.Doc.OrderNumber}}
Issued:   {{.Doc.IssuedAt.Format "2006-01-02 15:04"}}
Customer: {{.Doc.CustomerName}}
DNI:      {{.Doc.CustomerDNI}}
{{- if .Doc.CustomerPhone}}
Phone:    {{.Doc.CustomerPhone}}
{{- end}}

{{printf "%-32s %5s %12s %12s" "Product" "Qty" "Unit" "Total"}}
{{- range .Doc.Lines}}
{{printf "%-32.32s %5d %12s %12s" .Name .Quantity (money .UnitPrice) (money .Total)}}
{{- end}}

{{printf "%-51s %12s" "Subtotal" (money .Doc.Subtotal)}}
{{printf "%-51s %12s" .TaxLabel (money .Doc.Tax)}}
{{printf "%-51s %12s" "Total" (money .Doc.Total)}}
`

// TextRenderer renders invoices as fixed-width plain text.
type TextRenderer struct {
	storeName string
	tmpl      *template.Template
}

func NewTextRenderer(storeName string) *TextRenderer {
	tmpl := template.Must(template.New("invoice").Funcs(template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	}).Parse(invoiceTemplate))
	return &TextRenderer{storeName: storeName, tmpl: tmpl}
}

func (r *TextRenderer) Render(doc model.InvoiceDocument) ([]byte, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, struct {
		StoreName string
		TaxLabel  string
		Doc       model.InvoiceDocument
	}{
		StoreName: r.storeName,
		TaxLabel:  "IGV " + model.TaxRate.Shift(2).String() + "%",
		Doc:       doc,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to render invoice")
	}
	return buf.Bytes(), nil
}
