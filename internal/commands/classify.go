package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/batch"
	"github.com/cleared-dev/tally/internal/classify"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/ledger"
)

// jobFlags override what the configured sources would pick for a file.
type jobFlags struct {
	prefix   string
	format   string
	entity   string
	currency string
}

func (f *jobFlags) register(cmd *cobra.Command, prefix string) {
	f.prefix = prefix
	cmd.Flags().StringVar(&f.format, prefix+"format", "", "source format ("+fmt.Sprint(importer.DefaultRegistry().Formats())+")")
	cmd.Flags().StringVar(&f.entity, prefix+"entity", "", "owning entity")
	cmd.Flags().StringVar(&f.currency, prefix+"currency", "", "currency for sources without a currency column")
}

// job plans one file against the configured sources, then applies the
// flag overrides.
func (f *jobFlags) job(p *project, path string) (batch.Job, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return batch.Job{}, fmt.Errorf("resolving path: %w", err)
	}
	job := batch.Plan(p.cfg, []importer.FileInfo{{Name: filepath.Base(abs), Path: abs}})[0]
	if f.format != "" && f.format != job.Format {
		job.Format = f.format
		job.Options = importer.Options{Currencies: p.cfg.CurrencySet()}
		if rc, ok := p.cfg.Report(f.format); ok {
			job.Options.Required = rc.Required
			job.Options.Reference = rc.Reference
		}
	}
	if f.entity != "" {
		job.Options.Entity = f.entity
		job.Identity = classify.Identity{Names: p.cfg.Identities(f.entity)}
	}
	if f.currency != "" {
		job.Options.Currency = f.currency
	}
	if job.Format == "" {
		return batch.Job{}, fmt.Errorf("%s: no configured source matches; pass --%sformat", job.Name, f.prefix)
	}
	return job, nil
}

// runJob parses and classifies one file without touching the miss log.
func runJob(cmd *cobra.Command, p *project, job batch.Job) (batch.ReportResult, error) {
	runner := &batch.Runner{
		Registry:   importer.DefaultRegistry(),
		Classifier: p.classifier,
	}
	res, err := runner.Run(cmd.Context(), []batch.Job{job})
	if err != nil {
		return batch.ReportResult{}, err
	}
	rr := res.Reports[0]
	if rr.Err != nil {
		return batch.ReportResult{}, rr.Err
	}
	return rr, nil
}

func newClassifyCommand(opts *globalOptions) *cobra.Command {
	var flags jobFlags

	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "Parse and classify a report, printing ledger rows to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd)
			if err != nil {
				return err
			}
			job, err := flags.job(p, args[0])
			if err != nil {
				return err
			}
			rr, err := runJob(cmd, p, job)
			if err != nil {
				return err
			}

			entries := make([]ledger.Entry, len(rr.Transactions))
			for i, tx := range rr.Transactions {
				entries[i] = ledger.Entry{Transaction: tx}
			}
			return ledger.WriteEntries(cmd.OutOrStdout(), entries)
		},
	}

	flags.register(cmd, "")

	return cmd
}
