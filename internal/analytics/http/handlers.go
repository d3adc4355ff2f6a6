package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maison-parfum/maison/internal/analytics"
	"github.com/maison-parfum/maison/internal/analytics/export"
	"github.com/maison-parfum/maison/internal/analytics/svg"
	"github.com/maison-parfum/maison/internal/platform/httpx"
)

const requestTimeout = 15 * time.Second

// DashboardService defines the dashboard data contract used by the handler.
type DashboardService interface {
	Dashboard(ctx context.Context, rng analytics.TimeRange) (analytics.Dashboard, error)
	Invalidate(ctx context.Context) error
}

// PDFService renders dashboard content to PDF bytes.
type PDFService interface {
	RenderDashboard(ctx context.Context, payload export.DashboardPayload) ([]byte, error)
}

// Handler serves the admin analytics endpoints.
type Handler struct {
	logger   *slog.Logger
	service  DashboardService
	pdf      PDFService
	validate *validator.Validate
	csvPool  sync.Pool
	now      func() time.Time
	store    string
}

// NewHandler constructs the analytics HTTP handler. pdf may be nil, in which
// case the PDF export answers 503.
func NewHandler(logger *slog.Logger, service DashboardService, pdf PDFService) *Handler {
	h := &Handler{
		logger:   logger,
		service:  service,
		pdf:      pdf,
		validate: validator.New(),
		now:      time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithStoreName sets the heading used on exported reports.
func (h *Handler) WithStoreName(name string) {
	h.store = strings.TrimSpace(name)
}

type dashboardQuery struct {
	Range string `validate:"omitempty,oneof=today week month year"`
}

func (h *Handler) parseRange(r *http.Request) (analytics.TimeRange, error) {
	q := dashboardQuery{Range: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("range")))}
	if err := h.validate.Struct(q); err != nil {
		return "", fmt.Errorf("%w: range must be one of today, week, month, year", httpx.ErrValidation)
	}
	return analytics.ParseTimeRange(q.Range)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (analytics.Dashboard, bool) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return analytics.Dashboard{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dash, err := h.service.Dashboard(ctx, rng)
	if err != nil {
		h.handleServiceError(w, "load dashboard", err)
		return analytics.Dashboard{}, false
	}
	return dash, true
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=30")
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) handleRevenueChart(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.load(w, r)
	if !ok {
		return
	}
	chart, err := revenueChart(dash)
	if err != nil {
		h.handleServiceError(w, "render revenue chart", err)
		return
	}
	writeSVG(w, chart, h.logError)
}

func (h *Handler) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.load(w, r)
	if !ok {
		return
	}
	chart, err := categoryChart(dash)
	if err != nil {
		h.handleServiceError(w, "render category chart", err)
		return
	}
	writeSVG(w, chart, h.logError)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.load(w, r)
	if !ok {
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteDashboardCSV(buf, dash); err != nil {
		h.handleServiceError(w, "write csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", h.filename(dash, "csv")))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.RespondError(w, fmt.Errorf("%w: pdf exporter not configured", httpx.ErrUnavailable))
		return
	}
	dash, ok := h.load(w, r)
	if !ok {
		return
	}

	payload := export.DashboardPayload{StoreName: h.store, GeneratedAt: h.now(), Dashboard: dash}
	var err error
	if payload.RevenueSVG, err = revenueChart(dash); err != nil {
		h.handleServiceError(w, "render revenue chart", err)
		return
	}
	if payload.CategorySVG, err = categoryChart(dash); err != nil {
		h.handleServiceError(w, "render category chart", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	pdfBytes, err := h.pdf.RenderDashboard(ctx, payload)
	if err != nil {
		h.logError("render pdf", err)
		httpx.RespondError(w, fmt.Errorf("%w: pdf rendering failed", httpx.ErrUnavailable))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", h.filename(dash, "pdf")))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.handleServiceError(w, "invalidate cache", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) filename(dash analytics.Dashboard, ext string) string {
	return fmt.Sprintf("analytics-%s-%s.%s", dash.Range, h.now().Format("20060102"), ext)
}

func revenueChart(dash analytics.Dashboard) (template.HTML, error) {
	series := make([]float64, len(dash.ChartData.Revenue))
	for i, v := range dash.ChartData.Revenue {
		series[i] = v.InexactFloat64()
	}
	return svg.Line(svg.DefaultWidth, svg.DefaultHeight, series, dash.ChartData.Labels, svg.LineOpts{
		Title:       "Revenue",
		Description: fmt.Sprintf("Realised revenue per bucket, %s", dash.Range),
		ShowDots:    true,
	})
}

func categoryChart(dash analytics.Dashboard) (template.HTML, error) {
	values := make([]float64, len(dash.CategoryData.Data))
	for i, v := range dash.CategoryData.Data {
		values[i] = float64(v)
	}
	return svg.Bars(svg.DefaultWidth, svg.DefaultHeight, values, dash.CategoryData.Labels, svg.BarOpts{
		Title:       "Units by category",
		Description: fmt.Sprintf("Units sold per category, %s", dash.Range),
		ShowValues:  true,
	})
}

func writeSVG(w http.ResponseWriter, chart template.HTML, logError func(string, error)) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, max-age=30")
	if _, err := w.Write([]byte(chart)); err != nil {
		logError("stream svg", err)
	}
}

func (h *Handler) handleServiceError(w http.ResponseWriter, context string, err error) {
	if !errors.Is(err, httpx.ErrValidation) {
		h.logError(context, err)
	}
	if errors.Is(err, analytics.ErrUnknownRange) {
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

// HandleDashboardForTest exposes the dashboard handler for tests.
func (h *Handler) HandleDashboardForTest(w http.ResponseWriter, r *http.Request) {
	h.handleDashboard(w, r)
}

// HandleCSVForTest exposes the CSV handler for tests.
func (h *Handler) HandleCSVForTest(w http.ResponseWriter, r *http.Request) { h.handleCSV(w, r) }

// HandlePDFForTest exposes the PDF handler for tests.
func (h *Handler) HandlePDFForTest(w http.ResponseWriter, r *http.Request) { h.handlePDF(w, r) }
