// Package xlsx keeps the ledger in a spreadsheet file on disk.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/ledger"
)

// DefaultSheet is the sheet name spreadsheet tools give a new workbook.
const DefaultSheet = "Sheet1"

// Store reads and writes the whole ledger file. Writes go to a temporary
// file in the same directory and are renamed over the ledger, so a crash
// never leaves a half-written workbook behind.
type Store struct {
	path  string
	sheet string

	mu        sync.Mutex
	snapshots *cache.LRU[[]core.Expense]
}

var (
	_ ledger.Store    = (*Store)(nil)
	_ ledger.Exporter = (*Store)(nil)
)

// New returns a store for the workbook at path. An empty sheet means DefaultSheet.
func New(path, sheet string) *Store {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &Store{
		path:      path,
		sheet:     sheet,
		snapshots: cache.NewLRU[[]core.Expense](4, 10*time.Minute),
	}
}

// Path returns the workbook location.
func (s *Store) Path() string { return s.path }

// Snapshots exposes the parsed-file cache so a janitor can clean it.
func (s *Store) Snapshots() cache.Cleaner { return s.snapshots }

// Init creates the workbook with only a header row when it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(ctx)
}

func (s *Store) ensure(ctx context.Context) error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat ledger file: %w", err)
	}
	slog.InfoContext(ctx, "Creating empty ledger file", "path", s.path, "sheet", s.sheet)
	return s.write(nil)
}

// Load reads every row. Rows written before IDs existed receive one and the
// file is rewritten once, so the IDs stay stable from then on.
func (s *Store) Load(ctx context.Context) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("stat ledger file: %w", err)
	}
	key := s.path + "|" + strconv.FormatInt(info.Size(), 10) + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
	if items, ok := s.snapshots.Get(key); ok {
		return slices.Clone(items), nil
	}

	items, err := s.read()
	if err != nil {
		return nil, err
	}
	if core.EnsureIDs(items) {
		slog.InfoContext(ctx, "Assigned IDs to ledger rows", "path", s.path, "rows", len(items))
		if err := s.write(items); err != nil {
			return nil, fmt.Errorf("persist assigned IDs: %w", err)
		}
		return items, nil
	}
	s.snapshots.Set(key, slices.Clone(items))
	return items, nil
}

// Save replaces the workbook contents.
func (s *Store) Save(ctx context.Context, expenses []core.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(expenses)
}

// Export streams the workbook file as stored.
func (s *Store) Export(ctx context.Context, w io.Writer) (ledger.Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(ctx); err != nil {
		return ledger.Export{}, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return ledger.Export{}, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return ledger.Export{}, fmt.Errorf("copy ledger file: %w", err)
	}
	return ledger.Export{Filename: filepath.Base(s.path), ContentType: ledger.XLSXContentType}, nil
}

func (s *Store) read() ([]core.Expense, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	sheet := s.sheet
	sheets := f.GetSheetList()
	if !slices.Contains(sheets, sheet) {
		if len(sheets) == 0 {
			return nil, fmt.Errorf("ledger file %s has no sheets", s.path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows from %s: %w", sheet, err)
	}
	if err := convertSerialDates(f, sheet, rows); err != nil {
		return nil, err
	}
	items, err := ledger.DecodeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return items, nil
}

// convertSerialDates rewrites the Date column of rows in place. Only number
// cells hold Excel serial dates; text cells keep what was typed.
func convertSerialDates(f *excelize.File, sheet string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	col := slices.IndexFunc(rows[0], func(h string) bool {
		return strings.EqualFold(strings.TrimSpace(h), "Date")
	})
	if col < 0 {
		return nil
	}
	for r := 1; r < len(rows); r++ {
		if col >= len(rows[r]) || strings.TrimSpace(rows[r][col]) == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, r+1)
		if err != nil {
			return err
		}
		typ, err := f.GetCellType(sheet, cell)
		if err != nil {
			return fmt.Errorf("cell type of %s: %w", cell, err)
		}
		// number cells usually carry no type attribute at all
		if typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset {
			rows[r][col] = normalizeDate(strings.TrimSpace(rows[r][col]))
		}
	}
	return nil
}

func (s *Store) write(expenses []core.Expense) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, s.sheet, expenses); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	s.snapshots.Purge()
	return nil
}

// Encode writes expenses as a workbook with a single sheet.
func Encode(w io.Writer, sheet string, expenses []core.Expense) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()

	if first := f.GetSheetName(0); first != sheet {
		if err := f.SetSheetName(first, sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}
	for r, row := range ledger.EncodeRows(expenses) {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	if err := boldHeader(f, sheet, len(core.Columns)); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func boldHeader(f *excelize.File, sheet string, cols int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// normalizeDate turns the value of a number cell holding an Excel serial
// date into the application's layout and leaves every other value untouched.
func normalizeDate(s string) string {
	if _, err := core.ParseDate(s); err == nil {
		return s
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return s
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(core.DateLayout)
	}
	return t.Format("2006-01-02 15:04:05")
}
