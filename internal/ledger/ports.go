// Package ledger defines the ports every ledger backend implements.
package ledger

import (
	"context"
	"io"

	"expenses/internal/core"
)

// Ports for ledger adapters.
type (
	Loader interface {
		// Load returns every expense in ledger order.
		Load(ctx context.Context) ([]core.Expense, error)
	}

	Saver interface {
		// Save replaces the whole ledger.
		Save(ctx context.Context, expenses []core.Expense) error
	}

	// Store is the minimum a backend provides.
	Store interface {
		Loader
		Saver
	}

	// RowStore is implemented by backends that can change single rows
	// without rewriting the ledger.
	RowStore interface {
		Append(ctx context.Context, e core.Expense) error
		Update(ctx context.Context, e core.Expense) error
		Delete(ctx context.Context, id string) error
	}

	// Exporter streams the ledger as a downloadable file.
	Exporter interface {
		Export(ctx context.Context, w io.Writer) (Export, error)
	}
)

// Export describes a downloaded ledger file.
type Export struct {
	Filename    string
	ContentType string
}

// XLSXContentType is the media type of spreadsheet exports.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
