package sales

import (
	"fmt"
	"strconv"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Filename is the attachment name of an invoice document.
func Filename(inv Invoice) string {
	return "invoice-" + slug.Make(inv.InvoiceNumber) + ".pdf"
}

// RenderPDF lays out an invoice as a single PDF document.
func RenderPDF(storeName string, inv Invoice) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	if storeName != "" {
		m.AddRow(12,
			text.NewCol(12, storeName, props.Text{Size: 14, Style: fontstyle.Bold}),
		)
	}
	m.AddRow(10,
		text.NewCol(6, "Invoice", props.Text{Size: 20, Style: fontstyle.Bold}),
		text.NewCol(6, inv.InvoiceNumber, props.Text{Size: 12, Align: align.Right, Top: 3}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(inv.CustomerName, props.Text{Top: 5}),
			text.New(inv.CustomerEmail, props.Text{Top: 9}),
			text.New(inv.CustomerPhone, props.Text{Top: 13}),
		),
		col.New(6).Add(
			text.New("Date of issue: "+inv.IssuedAt.Format("2006-01-02"), props.Text{Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Product", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range inv.Items {
		m.AddRow(8,
			text.NewCol(6, line.Name, props.Text{Size: 9}),
			text.NewCol(2, strconv.Itoa(line.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, DisplayAmount(inv.Currency, line.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, DisplayAmount(inv.Currency, line.LineTotal), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := []struct {
		label  string
		amount string
		bold   bool
	}{
		{label: "Subtotal", amount: inv.Subtotal},
		{label: fmt.Sprintf("Discount (%s)", percent(inv.DiscountRate)), amount: "-" + inv.DiscountAmount},
		{label: "Taxable amount", amount: inv.TaxableAmount},
		{label: fmt.Sprintf("Tax (%s)", percent(inv.TaxRate)), amount: inv.TaxAmount},
		{label: "Total", amount: inv.GrandTotal, bold: true},
	}
	for _, row := range totals {
		style := props.Text{Size: 9}
		if row.bold {
			style.Style = fontstyle.Bold
		}
		value := style
		value.Align = align.Right
		m.AddRow(8,
			col.New(6),
			text.NewCol(3, row.label, style),
			text.NewCol(3, DisplayAmount(inv.Currency, row.amount), value),
		)
	}

	if inv.Notes != "" {
		m.AddRow(20,
			text.NewCol(12, inv.Notes, props.Text{Size: 9, Top: 6}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

// DisplayAmount prefixes an already rounded amount with the narrow symbol of
// an ISO 4217 code, such as "$ 97.20". Unknown codes are kept verbatim.
func DisplayAmount(code, amount string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " " + amount
	}
	return fmt.Sprint(currency.NarrowSymbol(unit)) + " " + amount
}

func percent(rate string) string {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return rate
	}
	return d.Shift(2).String() + "%"
}
