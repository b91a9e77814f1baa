package commands

import (
	"fmt"
	"io"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/aggregate"
	"github.com/cleared-dev/tally/internal/export"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/period"
)

type rollupOptions struct {
	from            string
	to              string
	period          string
	view            string
	allocation      string
	entities        []string
	includeInternal bool
	out             string
}

func newRollupCommand(opts *globalOptions) *cobra.Command {
	var ro rollupOptions

	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Summarize the ledger per period, entity and currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("allocation") {
				ro.allocation = p.cfg.Aggregate.Allocation
			}
			if !cmd.Flags().Changed("include-internal") {
				ro.includeInternal = p.cfg.Aggregate.IncludeInternal
			}
			if len(ro.entities) == 0 {
				ro.entities = p.cfg.EntityNames()
			}
			return runRollup(cmd, p, &ro)
		},
	}

	cmd.Flags().StringVar(&ro.from, "from", "", "first date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&ro.to, "to", "", "last date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringVar(&ro.period, "period", "monthly", "monthly, quarterly or yearly")
	cmd.Flags().StringVar(&ro.view, "view", "exclusive", "exclusive keeps shared overhead apart; inclusive folds it into entities")
	cmd.Flags().StringVar(&ro.allocation, "allocation", "none", "inclusive view only: none or equal (default aggregate.allocation)")
	cmd.Flags().StringSliceVar(&ro.entities, "entity", nil, "entities to report (default every configured entity)")
	cmd.Flags().BoolVar(&ro.includeInternal, "include-internal", false, "keep moves between own accounts (default aggregate.include_internal)")
	cmd.Flags().StringVar(&ro.out, "out", "", "write to a .csv or .xlsx file instead of stdout")

	return cmd
}

func (ro *rollupOptions) scope() (period.Granularity, aggregate.Scope, error) {
	g, err := period.Parse(ro.period)
	if err != nil {
		return g, aggregate.Scope{}, err
	}
	view, err := aggregate.ParseView(ro.view)
	if err != nil {
		return g, aggregate.Scope{}, err
	}
	alloc, err := aggregate.ParseAllocation(ro.allocation)
	if err != nil {
		return g, aggregate.Scope{}, err
	}
	return g, aggregate.Scope{
		Entities:        ro.entities,
		View:            view,
		Allocation:      alloc,
		IncludeInternal: ro.includeInternal,
	}, nil
}

func runRollup(cmd *cobra.Command, p *project, ro *rollupOptions) error {
	from, err := civil.ParseDate(ro.from)
	if err != nil {
		return fmt.Errorf("parsing --from: %w", err)
	}
	to, err := civil.ParseDate(ro.to)
	if err != nil {
		return fmt.Errorf("parsing --to: %w", err)
	}
	if to.Before(from) {
		return fmt.Errorf("--to %s is before --from %s", to, from)
	}
	g, scope, err := ro.scope()
	if err != nil {
		return err
	}
	rates, err := p.cfg.ParsedRates()
	if err != nil {
		return err
	}

	txs, err := ledger.NewService(p.root, p.cfg.CurrencySet(), p.chart).ReadRange(from, to)
	if err != nil {
		return err
	}

	agg := aggregate.New(aggregate.Settings{
		Primary:      p.cfg.Currencies.Primary,
		Rates:        rates,
		Groups:       p.chart.Groups(),
		Types:        p.chart.Types(),
		SavingsGroup: p.cfg.Aggregate.SavingsGroup,
	})
	buckets := agg.Aggregate(txs, g, scope)
	if err := aggregate.Verify(buckets, scope); err != nil {
		return fmt.Errorf("rollup does not add up: %w", err)
	}
	table := agg.Table(buckets)

	log := logger.FromContext(cmd.Context())
	log.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Str("period", g.String()).
		Str("view", scope.View.String()).
		Int("transactions", len(txs)).
		Int("rows", len(table.Rows)).
		Msg("rollup built")

	return writeOut(ro.out, cmd.OutOrStdout(),
		func(w io.Writer) error { return export.WriteTableCSV(w, table) },
		func(w io.Writer) error { return export.WriteTableXLSX(w, table) })
}
