package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expenses/internal/core"
)

// fakeSheets serves the three Values endpoints the client uses. Updates
// overwrite rows from A1 and clears drop every row from the range start.
type fakeSheets struct {
	mu         sync.Mutex
	values     [][]any
	clears     []string
	inputs     []string
	failUpdate bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		rng := strings.TrimSuffix(r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:], ":clear")
		f.clears = append(f.clears, rng)
		f.values = f.values[:min(len(f.values), clearStart(rng)-1)]
		_ = json.NewEncoder(w).Encode(map[string]any{"clearedRange": rng})
	case r.Method == http.MethodPut:
		if f.failUpdate {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 403, "message": "quota exceeded"}})
			return
		}
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i, row := range vr.Values {
			if i < len(f.values) {
				f.values[i] = row
			} else {
				f.values = append(f.values, row)
			}
		}
		f.inputs = append(f.inputs, r.URL.Query().Get("valueInputOption"))
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": len(vr.Values)})
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Expenses", "majorDimension": "ROWS", "values": f.values})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) setFailUpdate(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failUpdate = v
}

// clearStart returns the first row of a range like "Expenses!A4:E", or 1
// when the range names the whole sheet.
func clearStart(rng string) int {
	_, cells, ok := strings.Cut(rng, "!A")
	if !ok {
		return 1
	}
	digits, _, _ := strings.Cut(cells, ":")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "Expenses")
}

func TestClient_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	in := []core.Expense{
		{ID: "a", Date: "2024-01-05", Amount: "10.5", Description: "coffee", Category: "Food"},
		{ID: "b", Date: "2024-01-20", Amount: "ten", Description: "bus", Category: "Transport"},
	}
	require.NoError(t, c.Save(ctx, in))
	assert.Equal(t, []string{"Expenses!A4:E"}, fake.clears)
	assert.Equal(t, []string{"RAW"}, fake.inputs)

	out, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestClient_LoadAssignsMissingIDs(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{values: [][]any{
		{"Date", "Amount", "Description", "Category"},
		{"2024-01-05", 10.0, "coffee", "Food"},
	}}
	c := newTestClient(t, fake)

	items, err := c.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, "10", items[0].Amount)
	assert.Len(t, fake.clears, 1, "sheet rewritten with IDs")

	again, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, items[0].ID, again[0].ID)
	assert.Len(t, fake.clears, 1, "no rewrite once IDs exist")
}

func TestClient_SaveShrinksSheet(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	require.NoError(t, c.Save(ctx, []core.Expense{
		{ID: "a", Date: "2024-01-05", Amount: "1", Category: "Food"},
		{ID: "b", Date: "2024-01-06", Amount: "2", Category: "Food"},
		{ID: "c", Date: "2024-01-07", Amount: "3", Category: "Food"},
	}))
	want := []core.Expense{{ID: "b", Date: "2024-01-06", Amount: "2", Category: "Food"}}
	require.NoError(t, c.Save(ctx, want))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClient_FailedUpdateKeepsRows(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	before := []core.Expense{
		{ID: "a", Date: "2024-01-05", Amount: "10.50", Description: "coffee", Category: "Food"},
		{ID: "b", Date: "2024-01-06", Amount: "12,5", Description: "bus", Category: "Transport"},
	}
	require.NoError(t, c.Save(ctx, before))

	fake.setFailUpdate(true)
	err := c.Save(ctx, before[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update")

	fake.setFailUpdate(false)
	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, got)
}

func TestClient_LoadEmptySheet(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	items, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheet: "Expenses"}
	_, err := c.Load(context.Background())
	assert.Error(t, err)
	assert.Error(t, c.Save(context.Background(), nil))
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	badClient := filepath.Join(dir, "client.json")
	require.NoError(t, os.WriteFile(badClient, []byte("invalid-json"), 0o600))
	token := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(token, []byte(`{"access_token":"test"}`), 0o600))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing spreadsheet", Config{}, "missing GOOGLE_SPREADSHEET_ID"},
		{"missing credentials", Config{SpreadsheetID: "x"}, "missing Google credentials"},
		{"unreadable service account", Config{SpreadsheetID: "x", ServiceAccountFile: filepath.Join(dir, "nope.json")}, "read service account file"},
		{"bad oauth client", Config{SpreadsheetID: "x", OAuthClientFile: badClient, OAuthTokenFile: token}, "oauth config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(ctx, tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]any{"  a ", 12.0, 0.1, nil, true})
	assert.Equal(t, []string{"a", "12", "0.1", "", "true"}, got)
}
