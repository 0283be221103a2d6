package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"

	"expenses/internal/core"
	"expenses/internal/ledger/xlsx"
	"expenses/internal/report"
	"expenses/internal/summary"
)

type Params struct {
	File     string `descr:"Path to the ledger workbook" positional:"true"`
	Sheet    string `descr:"Sheet holding the ledger" default:"Sheet1"`
	Format   string `descr:"Output format" alts:"table,json" strict:"true" default:"table"`
	Currency string `descr:"ISO currency code for table output" default:"EUR" env:"CURRENCY"`
	Output   string `descr:"Also write the summary to this xlsx file" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("expensectl").
		WithShort("Summarize an expense ledger by month and category").
		WithLong("Reads an expense workbook and prints the month by category totals as a table or JSON, optionally saving them as a new workbook.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(params *Params) error {
	if _, err := os.Stat(params.File); err != nil {
		return fmt.Errorf("ledger file: %w", err)
	}
	expenses, err := xlsx.New(params.File, params.Sheet).Load(context.Background())
	if err != nil {
		return err
	}
	table, err := summary.Build(expenses)
	if err != nil {
		return fmt.Errorf("cannot build the summary: %w", err)
	}

	switch params.Format {
	case "json":
		if err := report.PrintJSON(os.Stdout, table, params.Currency); err != nil {
			return err
		}
	default:
		fmt.Printf("Loaded %d expenses from %s\n\n", len(expenses), params.File)
		report.PrintTable(os.Stdout, table, core.NewFormatter(params.Currency))
	}

	if params.Output != "" {
		if err := report.WriteXLSX(params.Output, table); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote summary to %s\n", params.Output)
	}
	return nil
}
