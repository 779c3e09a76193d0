package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"salesjournal/internal/domain"
)

// ToCSV flattens a summary into section,key,value rows.
func ToCSV(result domain.AggregationResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "start", result.Range.Start.Format(domain.DateLayout)},
		{"summary", "end", result.Range.End.Format(domain.DateLayout)},
		{"summary", "total_sales", result.TotalSales.StringFixed(2)},
		{"summary", "total_units", strconv.Itoa(result.TotalUnits)},
		{"summary", "total_orders", strconv.Itoa(result.TotalOrders)},
	}
	for _, point := range result.Series {
		rows = append(rows, []string{"series", point.Label, point.Value.StringFixed(2)})
	}
	for _, category := range result.CategoryBreakdown {
		rows = append(rows, []string{"category", csvText(category.Name), category.Value.StringFixed(2)})
	}
	for _, product := range result.TopProducts {
		rows = append(rows, []string{"top_product", csvText(product.Name), strconv.Itoa(product.Qty)})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// csvText keeps spreadsheet applications from evaluating a name as a formula.
func csvText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// ToXLSX renders a workbook with one sheet per summary section.
func ToXLSX(result domain.AggregationResult) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"Metric", "Value"},
		{"Start", result.Range.Start.Format(domain.DateLayout)},
		{"End", result.Range.End.Format(domain.DateLayout)},
		{"Total Sales", result.TotalSales.InexactFloat64()},
		{"Total Units", result.TotalUnits},
		{"Total Orders", result.TotalOrders},
	}
	if err := writeSheet(f, "Summary", summary); err != nil {
		return nil, err
	}

	series := [][]any{{"Bucket", "Sales"}}
	for _, point := range result.Series {
		series = append(series, []any{point.Label, point.Value.InexactFloat64()})
	}
	categories := [][]any{{"Category", "Sales"}}
	for _, category := range result.CategoryBreakdown {
		categories = append(categories, []any{category.Name, category.Value.InexactFloat64()})
	}
	products := [][]any{{"Product", "Units"}}
	for _, product := range result.TopProducts {
		products = append(products, []any{product.Name, product.Qty})
	}

	for _, sheet := range []struct {
		name string
		rows [][]any
	}{
		{"Series", series},
		{"Categories", categories},
		{"Top Products", products},
	} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, sheet.name, sheet.rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// summaryHTMLTmpl renders printable summaries. html/template escapes item and category names.
var summaryHTMLTmpl = template.Must(template.New("sales-summary").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Sales Summary {{.Range.Start.Format "2006-01-02"}} to {{.Range.End.Format "2006-01-02"}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Sales Summary {{.Range.Start.Format "2006-01-02"}} to {{.Range.End.Format "2006-01-02"}}</h2>
  <p>Total Sales: {{.TotalSales.StringFixed 2}} | Units Sold: {{.TotalUnits}} | Orders: {{.TotalOrders}}</p>

  <h3>Sales by {{.Granularity}}</h3>
  <table>
    <thead><tr><th>Bucket</th><th>Sales</th></tr></thead>
    <tbody>{{range .Series}}<tr><td>{{.Label}}</td><td style="text-align:right;">{{.Value.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>

  <h3>By Category</h3>
  <table>
    <thead><tr><th>Category</th><th>Sales</th></tr></thead>
    <tbody>{{range .CategoryBreakdown}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{.Value.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Top Products</h3>
  <table>
    <thead><tr><th>Product</th><th>Units</th></tr></thead>
    <tbody>{{range .TopProducts}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{.Qty}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func ToPrintableHTML(result domain.AggregationResult) (string, error) {
	var buf bytes.Buffer
	if err := summaryHTMLTmpl.Execute(&buf, result); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}
