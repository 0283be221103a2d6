package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expenses/internal/core"
)

// errInvalidIndex is returned when a positional field is not an integer.
var errInvalidIndex = errors.New("index is not an integer")

// requiredField returns the form value for key, failing when the key was not submitted at all.
// An empty value is accepted.
func requiredField(form url.Values, key string) (string, error) {
	vals, ok := form[key]
	if !ok || len(vals) == 0 {
		return "", fmt.Errorf("%w: %s", core.ErrMissingField, key)
	}
	return sanitizeInput(vals[0]), nil
}

// parseDraft reads the expense fields of a create or edit form.
func parseDraft(form url.Values) (core.Draft, error) {
	var d core.Draft
	var err error
	if d.Amount, err = requiredField(form, "amount"); err != nil {
		return core.Draft{}, err
	}
	if d.Description, err = requiredField(form, "description"); err != nil {
		return core.Draft{}, err
	}
	if d.Category, err = requiredField(form, "category"); err != nil {
		return core.Draft{}, err
	}
	d.Date = strings.TrimSpace(sanitizeInput(form.Get("date")))
	return d, nil
}

// parseRef prefers the stable id and falls back to the positional field indexKey.
func parseRef(form url.Values, indexKey string) (core.Ref, error) {
	if id := strings.TrimSpace(form.Get("id")); id != "" {
		return core.ByID(id), nil
	}
	raw, err := requiredField(form, indexKey)
	if err != nil {
		return core.Ref{}, err
	}
	i, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return core.Ref{}, fmt.Errorf("%w: %s=%q", errInvalidIndex, indexKey, raw)
	}
	return core.ByPosition(i), nil
}

// parseFilter reads the list filter from the query string.
func parseFilter(q url.Values) core.Filter {
	return core.Filter{
		Date:     strings.TrimSpace(sanitizeInput(q.Get("date"))),
		Category: sanitizeInput(q.Get("category")),
	}
}

// sanitizeInput removes control characters except tab, newline and carriage return.
// Surrounding spaces are kept: categories are stored as typed.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s)
}

// statusFor maps service and parsing errors to a response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrPositionOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMissingField), errors.Is(err, errInvalidIndex):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
