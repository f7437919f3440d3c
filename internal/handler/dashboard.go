package handler

import (
	"net/http"
	"time"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/content"
	"github.com/tomhasit/tomhasit-web/internal/store"
)

const (
	chartMonths     = 12
	overviewPreview = 5
)

// ChartBar is one month of the visitor chart. Height is a percentage of the
// busiest month.
type ChartBar struct {
	Label  string
	Count  int64
	Height int
}

// DashboardPage is the template data for the dashboard overview.
type DashboardPage struct {
	BasePage
	TotalVisits   int64
	TotalVisitors int64
	TotalReviews  int
	TotalImages   int
	Chart         []ChartBar
	Gallery       []backend.GalleryItem
	Reviews       []backend.Review
	LoadError     string
}

// DashboardHandler serves the authenticated overview.
type DashboardHandler struct {
	content *content.Service
	visits  store.VisitStoreIface
	flow    *auth.Flow
	now     func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(c *content.Service, vs store.VisitStoreIface, flow *auth.Flow) *DashboardHandler {
	return &DashboardHandler{content: c, visits: vs, flow: flow, now: time.Now}
}

// Show renders the stats cards, the visitor chart and the latest content.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := DashboardPage{BasePage: newBasePage(r, h.flow, "Dashboard")}

	var err error
	if data.TotalVisits, err = h.visits.CountTotal(ctx); err != nil {
		serverError(w, r, "could not count visits", err)
		return
	}
	if data.TotalVisitors, err = h.visits.CountVisitors(ctx); err != nil {
		serverError(w, r, "could not count visitors", err)
		return
	}
	months, err := h.visits.MonthlyCounts(ctx, h.now(), chartMonths)
	if err != nil {
		serverError(w, r, "could not load visit chart", err)
		return
	}
	data.Chart = chartBars(months)

	gallery, err := h.content.Gallery(ctx)
	if err != nil {
		logBackendError(r, "load gallery", err)
		data.LoadError = "Some content could not be loaded from the server."
	}
	reviews, err := h.content.Reviews(ctx)
	if err != nil {
		logBackendError(r, "load reviews", err)
		data.LoadError = "Some content could not be loaded from the server."
	}
	data.TotalImages = len(gallery)
	data.TotalReviews = len(reviews)
	data.Gallery = gallery[:min(len(gallery), overviewPreview)]
	data.Reviews = reviews[:min(len(reviews), overviewPreview)]

	render(w, "dashboard/overview.html", data)
}

func chartBars(months []store.MonthCount) []ChartBar {
	var peak int64
	for _, m := range months {
		peak = max(peak, m.Count)
	}
	bars := make([]ChartBar, len(months))
	for i, m := range months {
		bars[i] = ChartBar{Label: m.Label(), Count: m.Count}
		if peak > 0 {
			bars[i].Height = int(m.Count * 100 / peak)
		}
	}
	return bars
}
