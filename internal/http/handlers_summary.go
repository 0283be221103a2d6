package http

import (
	"net/http"

	applog "expenses/internal/log"
	"expenses/internal/summary"
)

type summaryRow struct {
	Month string
	Cells []string
	Total string
}

type displayPage struct {
	Categories   []string
	Rows         []summaryRow
	ColumnTotals []string
	Total        string
}

func (s *Server) displayPage(t summary.Table) displayPage {
	page := displayPage{
		Categories:   t.Categories,
		Rows:         make([]summaryRow, len(t.Months)),
		ColumnTotals: make([]string, len(t.Categories)),
		Total:        s.format.Format(t.Total()),
	}
	for i, m := range t.Months {
		row := summaryRow{Month: m.String(), Cells: make([]string, len(t.Categories)), Total: s.format.Format(t.RowTotal(i))}
		for j := range t.Categories {
			row.Cells[j] = s.format.Format(t.Cells[i][j])
		}
		page.Rows[i] = row
	}
	for j := range t.Categories {
		page.ColumnTotals[j] = s.format.Format(t.ColumnTotal(j))
	}
	return page
}

// handleDisplay renders the month by category pivot. A ledger that cannot be
// aggregated answers 500 with the reason.
func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.Summary(r.Context())
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Summary failed", err, applog.ComponentSummary, applog.OpSummary,
			applog.NewFields().WithErrorType(applog.ErrorTypeAggregation))
		http.Error(w, "Cannot build the summary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "display.html", s.displayPage(t))
}
