package commands

import (
	"fmt"
	"io"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/export"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/reconcile"
)

const (
	labelBank   = "bank"
	labelLedger = "ledger"
)

type reconcileOptions struct {
	bank      jobFlags
	ledger    jobFlags
	from      string
	tolerance string
	out       string
	strict    bool
}

func newReconcileCommand(opts *globalOptions) *cobra.Command {
	var ro reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile <bank-file> <ledger-file>",
		Short: "Match a bank statement against the books",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd)
			if err != nil {
				return err
			}
			return runReconcile(cmd, p, &ro, args[0], args[1])
		},
	}

	ro.bank.register(cmd, "bank-")
	ro.ledger.register(cmd, "ledger-")
	cmd.Flags().StringVar(&ro.from, "from", "", "ignore records before this date, YYYY-MM-DD (default reconcile.from)")
	cmd.Flags().StringVar(&ro.tolerance, "tolerance", "", "largest amount difference still matched (default reconcile.tolerance)")
	cmd.Flags().StringVar(&ro.out, "out", "", "write match rows to a .csv or .xlsx file")
	cmd.Flags().BoolVar(&ro.strict, "strict", false, "fail when any record is left unmatched")

	return cmd
}

func (ro *reconcileOptions) bounds(p *project) (decimal.Decimal, civil.Date, error) {
	tolerance, err := p.cfg.Tolerance()
	if err != nil {
		return decimal.Zero, civil.Date{}, err
	}
	if ro.tolerance != "" {
		tolerance, err = decimal.NewFromString(ro.tolerance)
		if err != nil {
			return decimal.Zero, civil.Date{}, fmt.Errorf("parsing --tolerance: %w", err)
		}
	}

	from, err := p.cfg.ReconcileFrom()
	if err != nil {
		return decimal.Zero, civil.Date{}, err
	}
	if ro.from != "" {
		from, err = civil.ParseDate(ro.from)
		if err != nil {
			return decimal.Zero, civil.Date{}, fmt.Errorf("parsing --from: %w", err)
		}
	}
	return tolerance, from, nil
}

func runReconcile(cmd *cobra.Command, p *project, ro *reconcileOptions, bankPath, ledgerPath string) error {
	tolerance, from, err := ro.bounds(p)
	if err != nil {
		return err
	}
	if ro.ledger.format == "" {
		ro.ledger.format = labelLedger
	}

	bankJob, err := ro.bank.job(p, bankPath)
	if err != nil {
		return err
	}
	ledgerJob, err := ro.ledger.job(p, ledgerPath)
	if err != nil {
		return err
	}
	bank, err := runJob(cmd, p, bankJob)
	if err != nil {
		return fmt.Errorf("reading bank: %w", err)
	}
	books, err := runJob(cmd, p, ledgerJob)
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	res, err := reconcile.Reconcile(bank.Transactions, books.Transactions, tolerance, from)
	if err != nil {
		return err
	}
	if err := res.Check(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	sum := reconcile.Summarize(res)
	if err := sum.Print(out, labelBank, labelLedger); err != nil {
		return err
	}
	printUnmatched(out, labelBank, res.AOnly)
	printUnmatched(out, labelLedger, res.BOnly)

	log := logger.FromContext(cmd.Context())
	log.Info().
		Str("currency", res.Currency).
		Int("matched", sum.Matched).
		Int("bank_only", sum.AOnly).
		Int("ledger_only", sum.BOnly).
		Str("gap", sum.Gap().String()).
		Msg("reconciled")

	if ro.out != "" {
		err := writeOut(ro.out, out,
			func(w io.Writer) error { return export.WriteMatchCSV(w, res, labelBank, labelLedger) },
			func(w io.Writer) error { return export.WriteMatchXLSX(w, res, labelBank, labelLedger) })
		if err != nil {
			return err
		}
	}

	if ro.strict && !sum.Clean {
		return fmt.Errorf("%d %s and %d %s records unmatched", sum.AOnly, labelBank, sum.BOnly, labelLedger)
	}
	return nil
}

func printUnmatched(w io.Writer, label string, txs []model.Transaction) {
	for _, tx := range txs {
		fmt.Fprintf(w, "  %s only: %s %12s %s\n", label, tx.Date, model.FormatPlain(tx.Amount, tx.Currency), tx.Counterparty)
	}
}
