package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/schema"
)

func newSchemaCommand(opts *globalOptions) *cobra.Command {
	var report string
	var strict bool

	cmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Compare a report's header with its configured fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd)
			if err != nil {
				return err
			}
			rc, ok := p.cfg.Report(report)
			if !ok {
				return fmt.Errorf("report %q is not configured", report)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening report: %w", err)
			}
			defer f.Close()
			observed, err := importer.ReadHeader(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			snap, err := schema.Check(report, observed, rc.Required, rc.Reference)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", report, strings.Join(snap.Observed, ", "))
			if !snap.HasChanges() {
				fmt.Fprintln(out, "no drift")
				return nil
			}
			log := logger.FromContext(cmd.Context())
			for _, w := range snap.Warnings() {
				log.Warn().Msg(w)
				fmt.Fprintln(out, w)
			}
			if strict {
				return fmt.Errorf("%s: %d added, %d removed fields", report, len(snap.Added), len(snap.Removed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&report, "report", "", "configured report name (required)")
	_ = cmd.MarkFlagRequired("report")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on any drift")

	return cmd
}
