package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/maison-parfum/maison/internal/analytics"
)

// DashboardPayload is everything the printable report shows.
type DashboardPayload struct {
	StoreName   string
	GeneratedAt time.Time
	Dashboard   analytics.Dashboard
	RevenueSVG  template.HTML
	CategorySVG template.HTML
}

// Doer is the subset of *http.Client the exporter needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PDFExporter converts the HTML report to PDF through Gotenberg.
type PDFExporter struct {
	Endpoint string
	Client   Doer
}

// RenderDashboard sends the HTML report to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) RenderDashboard(ctx context.Context, payload DashboardPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if err := WriteReportHTML(part, payload); err != nil {
		return nil, err
	}
	for field, value := range map[string]string{"paperWidth": "8.27", "paperHeight": "11.7", "printBackground": "true"} {
		if err := writer.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, string(data))
	}
	return io.ReadAll(resp.Body)
}

// Ping checks that Gotenberg answers its health endpoint.
func (p *PDFExporter) Ping(ctx context.Context) error {
	if p == nil || strings.TrimSpace(p.Endpoint) == "" {
		return fmt.Errorf("gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.Endpoint, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg health returned status %d", resp.StatusCode)
	}
	return nil
}

// WriteReportHTML renders the printable dashboard report.
func WriteReportHTML(w io.Writer, payload DashboardPayload) error {
	if payload.StoreName == "" {
		payload.StoreName = "Maison Parfum"
	}
	if payload.GeneratedAt.IsZero() {
		payload.GeneratedAt = time.Now()
	}
	return reportTemplate.Execute(w, payload)
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"amount":  FormatAmount,
	"count":   FormatCount,
	"percent": FormatPercent,
	"stamp":   func(t time.Time) string { return t.Format("02 Jan 2006 15:04 MST") },
}).Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.StoreName}} analytics</title>
<style>
body{font-family:Georgia,serif;margin:28px;color:#3d3428}
h1{font-size:22px;margin:0 0 4px}h2{font-size:15px;margin:24px 0 8px;border-bottom:1px solid #e8dfd0}
.meta{color:#6b5e4b;font-size:12px}
table{width:100%;border-collapse:collapse;font-size:12px}
th,td{padding:5px 6px;border-bottom:1px solid #eee;text-align:right}
th:first-child,td:first-child{text-align:left}
.grid{display:grid;grid-template-columns:repeat(3,1fr);gap:10px}
.card{border:1px solid #e8dfd0;border-radius:6px;padding:10px}
.card b{display:block;font-size:16px}
</style></head><body>
{{with .Dashboard}}
<h1>{{$.StoreName}}: {{.Range}} overview</h1>
<p class="meta">{{stamp .Current.Start}} to {{stamp .Current.End}}. Generated {{stamp $.GeneratedAt}}.</p>
<div class="grid">
<div class="card">Revenue<b>{{amount .Revenue}}</b>{{percent .RevenueTrend}}</div>
<div class="card">Profit<b>{{amount .Profit}}</b>{{percent .ProfitTrend}}</div>
<div class="card">Successful orders<b>{{count .SuccessOrdersCount}} / {{count .TotalOrders}}</b>{{percent .SuccessTrend}}</div>
<div class="card">Average order value<b>{{amount .AOV}}</b></div>
<div class="card">Lost revenue<b>{{amount .LostRevenue}}</b></div>
<div class="card">Abandoned carts<b>{{amount .AbandonedVal}}</b>{{count .UniqueAbandonedCount}} shoppers</div>
</div>
<h2>Customers</h2>
<table><tbody>
<tr><td>Active buyers</td><td>{{count .ActiveBuyersCount}}</td></tr>
<tr><td>New sign-ups</td><td>{{count .NewCustomers}}</td></tr>
<tr><td>First-time buyers</td><td>{{count .FirstTimeBuyers}}</td></tr>
<tr><td>Returning customers</td><td>{{count .ReturningCustomers}}</td></tr>
</tbody></table>
<h2>Revenue</h2>
{{$.RevenueSVG}}
<h2>Units by category</h2>
{{$.CategorySVG}}
{{if .LowStockVariants}}
<h2>Low stock</h2>
<table><thead><tr><th>Product</th><th>Variant</th><th>Stock</th></tr></thead><tbody>
{{range .LowStockVariants}}<tr><td>{{.ProductName}}</td><td>{{.Name}}</td><td>{{.Stock}}</td></tr>
{{end}}</tbody></table>
{{end}}
{{end}}
</body></html>
`))
