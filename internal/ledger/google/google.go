// Package google keeps the ledger in a Google Sheets tab.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expenses/internal/core"
	"expenses/internal/ledger"
)

// requestTimeout bounds each Sheets API call.
const requestTimeout = 10 * time.Second

// Config selects the spreadsheet and the credentials used to reach it.
// A service account wins over an OAuth client when both are set.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientFile    string
	OAuthTokenFile     string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ ledger.Store = (*Client)(nil)

// New creates a Sheets client from cfg.
func New(ctx context.Context, cfg Config, extra ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	if strings.TrimSpace(sheet) == "" {
		sheet = "Expenses"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

func clientOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	saJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	saFile := strings.TrimSpace(cfg.ServiceAccountFile)

	switch {
	case saJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []goption.ClientOption{
			goption.WithCredentialsJSON([]byte(saJSON)),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case saFile != "":
		b, err := os.ReadFile(saFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account credentials file", "path", saFile, "size", len(b))
		return []goption.ClientOption{
			goption.WithCredentialsJSON(b),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case cfg.OAuthClientFile != "" && cfg.OAuthTokenFile != "":
		httpClient, err := oauthClient(ctx, cfg.OAuthClientFile, cfg.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth user credentials", "token_file", cfg.OAuthTokenFile)
		return []goption.ClientOption{goption.WithHTTPClient(httpClient)}, nil
	default:
		return nil, errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_OAUTH_CLIENT_FILE with GOOGLE_OAUTH_TOKEN_FILE)")
	}
}

func oauthClient(ctx context.Context, clientFile, tokenFile string) (*http.Client, error) {
	b, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := OAuthConfig(b)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return cfg.Client(ctx, &tok), nil
}

// OAuthConfig parses an OAuth client secret for spreadsheet access.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// Load reads the whole tab. Rows without an ID get one and the tab is
// rewritten so the IDs persist.
func (c *Client) Load(ctx context.Context) ([]core.Expense, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheet).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.sheet, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = toStrings(row)
	}
	items, err := ledger.DecodeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.sheet, err)
	}
	if core.EnsureIDs(items) {
		slog.InfoContext(ctx, "Assigned IDs to sheet rows", "sheet", c.sheet, "rows", len(items))
		if err := c.Save(ctx, items); err != nil {
			return nil, fmt.Errorf("persist assigned IDs: %w", err)
		}
	}
	return items, nil
}

// Save writes the ledger from A1 and then clears the rows below it. A failed
// write leaves the previous rows in place.
func (c *Client) Save(ctx context.Context, expenses []core.Expense) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	vr := &gsheet.ValueRange{Values: ledger.EncodeRows(expenses)}
	rng := c.sheet + "!A1"
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	tail := tailRange(c.sheet, len(vr.Values))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tail, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tail, err)
	}
	slog.InfoContext(ctx, "Wrote ledger to sheet", "sheet", c.sheet, "rows", len(expenses))
	return nil
}

// tailRange addresses every ledger column below the first written rows.
func tailRange(sheet string, written int) string {
	lastCol := string(rune('A' + len(core.Columns) - 1))
	return fmt.Sprintf("%s!A%d:%s", sheet, written+1, lastCol)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(x))
		}
	}
	return out
}
