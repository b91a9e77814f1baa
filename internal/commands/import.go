package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/batch"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/logger"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import, classify and record the reports in import/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd)
			if err != nil {
				return err
			}
			return runImport(cmd, p, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify without writing the ledger or moving files")

	return cmd
}

func runImport(cmd *cobra.Command, p *project, dryRun bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	files, err := importer.Scan(p.root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "Nothing to import")
		return nil
	}

	runner := &batch.Runner{
		Registry:   importer.DefaultRegistry(),
		Classifier: p.classifier,
	}
	if !dryRun {
		runner.RepoRoot = p.root
		runner.Ledger = ledger.NewService(p.root, p.cfg.CurrencySet(), p.chart)
	}
	res, err := runner.Run(ctx, batch.Plan(p.cfg, files))
	if err != nil {
		return err
	}

	recorded := 0
	for _, rr := range res.Reports {
		if rr.Err != nil {
			continue
		}
		recorded += len(rr.EntryIDs)
		if dryRun {
			continue
		}
		if err := importer.MarkProcessed(p.root, rr.Job.Name); err != nil {
			return err
		}
	}

	misses := 0
	for _, rr := range res.Reports {
		misses += len(rr.Misses)
		if rr.Err != nil {
			fmt.Fprintf(out, "  %-30s rejected: %v\n", rr.Job.Name, rr.Err)
			continue
		}
		fmt.Fprintf(out, "  %-30s %d transactions, %d unclassified\n", rr.Job.Name, len(rr.Transactions), len(rr.Misses))
	}

	failed := res.Failed()
	log := logger.FromContext(ctx)
	log.Info().
		Str("run_id", res.RunID).
		Int("recorded", recorded).
		Int("unclassified", misses).
		Int("rejected", len(failed)).
		Bool("dry_run", dryRun).
		Msg("import finished")

	fmt.Fprintf(out, "Imported %d transactions from %d reports (run %s)\n",
		len(res.Transactions()), len(res.Reports)-len(failed), res.RunID)
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d reports rejected", len(failed), len(res.Reports))
	}
	return nil
}
