package http

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

type indexPage struct {
	Entries    []core.Entry
	Total      string
	TotalOK    bool
	Filter     core.Filter
	Categories []string
	Today      string
}

type editPage struct {
	Entry      core.Entry
	Categories []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := parseFilter(r.URL.Query())

	listing, err := s.service.List(ctx, f)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	cats, err := s.service.Categories(ctx)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}

	page := indexPage{
		Entries:    listing.Entries,
		TotalOK:    listing.TotalOK,
		Filter:     f,
		Categories: cats,
		Today:      s.service.Today(),
	}
	if listing.TotalOK {
		page.Total = s.format.Format(listing.Total)
	}
	s.render(w, r, http.StatusOK, "index.html", page)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}
	d, err := parseDraft(r.PostForm)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	e, err := s.service.Create(r.Context(), d)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogExpenseChanged(r.Context(), applog.OpCreate, e.ID, e.Date, e.Amount, e.Category)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}
	ref, err := parseRef(r.PostForm, "selected_index")
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}

	if err := s.service.Delete(r.Context(), ref); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentExpense).InfoContext(r.Context(),
		"Expense deleted", applog.FieldOperation, applog.OpDelete, "ref", ref.String())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref, err := parseRef(r.URL.Query(), "selected_index")
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}

	entry, err := s.service.Get(ctx, ref)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	cats, err := s.service.Categories(ctx)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	s.render(w, r, http.StatusOK, "edit.html", editPage{Entry: entry, Categories: cats})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}
	ref, err := parseRef(r.PostForm, "index")
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	d, err := parseDraft(r.PostForm)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}

	e, err := s.service.Update(r.Context(), ref, d)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogExpenseChanged(r.Context(), applog.OpUpdate, e.ID, e.Date, e.Amount, e.Category)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleExport sends the raw ledger file. The body is buffered so a failing
// store still gets a clean 500 instead of a truncated download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	exp, err := s.service.Export(r.Context(), &buf)
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
