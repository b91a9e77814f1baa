// Package batch imports and classifies a set of report files in one run.
// A report that fails is recorded and skipped; the others still complete.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/tally/internal/classify"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/misslog"
	"github.com/cleared-dev/tally/internal/model"
)

// Job is one file to import.
type Job struct {
	Name     string
	Path     string
	Format   string
	Options  importer.Options
	Identity classify.Identity
}

// ReportResult is the outcome of one job. Err is set when the report was
// rejected; Transactions is then empty.
type ReportResult struct {
	Job          Job
	Report       string
	Transactions []model.Transaction // classified
	Schema       *model.SchemaSnapshot
	Misses       []model.Transaction
	EntryIDs     []string // set when the run records to a ledger
	Err          error
}

// Result is the outcome of a run, one entry per job in input order.
type Result struct {
	RunID   string
	Reports []ReportResult
}

// Transactions returns the classified transactions of every successful
// report, in job order.
func (r Result) Transactions() []model.Transaction {
	var out []model.Transaction
	for _, rr := range r.Reports {
		out = append(out, rr.Transactions...)
	}
	return out
}

// Failed returns the reports that were rejected.
func (r Result) Failed() []ReportResult {
	var out []ReportResult
	for _, rr := range r.Reports {
		if rr.Err != nil {
			out = append(out, rr)
		}
	}
	return out
}

// Recorder stores the classified transactions of one report. Append
// either records every transaction or none.
type Recorder interface {
	Append(txs []model.Transaction) ([]string, error)
}

// Runner wires the registry, classifier, ledger and miss log together.
type Runner struct {
	Registry   *importer.Registry
	Classifier *classify.Classifier
	Ledger     Recorder // nil leaves recording to the caller
	RepoRoot   string   // miss log location; empty disables it
	Now        func() time.Time
}

// Run processes jobs in order. It returns early only when ctx is done;
// the partial result is returned with ctx's error.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := logger.FromContext(ctx).With().Str("run_id", res.RunID).Logger()
	now := r.Now
	if now == nil {
		now = time.Now
	}

	var misses []misslog.Entry
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rr := r.runJob(job)
		if rr.Err == nil && r.Ledger != nil {
			r.record(&rr)
		}
		jlog := log.With().Str("report", job.Name).Str("format", job.Format).Logger()
		if rr.Err != nil {
			jlog.Error().Err(rr.Err).Msg("report rejected")
		} else {
			if rr.Schema != nil {
				for _, w := range rr.Schema.Warnings() {
					jlog.Warn().Msg(w)
				}
			}
			ts := now()
			for _, tx := range rr.Misses {
				jlog.Debug().
					Str("source", string(tx.Source)).
					Str("counterparty", tx.Counterparty).
					Str("amount", tx.Amount.String()).
					Msg("unclassified")
				misses = append(misses, misslog.FromTransaction(ts, res.RunID, job.Name, tx))
			}
			jlog.Info().Int("transactions", len(rr.Transactions)).Int("misses", len(rr.Misses)).Msg("report imported")
		}
		res.Reports = append(res.Reports, rr)
	}

	if r.RepoRoot != "" {
		if err := misslog.Append(r.RepoRoot, misses); err != nil {
			return res, fmt.Errorf("writing miss log: %w", err)
		}
	}
	return res, nil
}

// record appends one report to the ledger. A report the ledger rejects
// is marked failed and keeps nothing, so other reports are unaffected.
func (r *Runner) record(rr *ReportResult) {
	ids, err := r.Ledger.Append(rr.Transactions)
	if err != nil {
		rr.Err = fmt.Errorf("%s: recording: %w", rr.Job.Name, err)
		rr.Transactions = nil
		rr.Misses = nil
		return
	}
	rr.EntryIDs = ids
}

func (r *Runner) runJob(job Job) ReportResult {
	rr := ReportResult{Job: job, Report: job.Format}
	if job.Format == "" {
		rr.Err = fmt.Errorf("%s: no configured source matches", job.Name)
		return rr
	}
	src := r.Registry.Get(job.Format)
	if src == nil {
		rr.Err = fmt.Errorf("%s: unknown format %q", job.Name, job.Format)
		return rr
	}

	report, err := importer.ParseFile(src, job.Path, job.Options)
	if err != nil {
		rr.Err = fmt.Errorf("%s: %w", job.Name, err)
		return rr
	}
	rr.Report = report.Name
	rr.Schema = report.Schema

	// Records that arrive already classified (a kept ledger) keep theirs.
	txs := make([]model.Transaction, len(report.Transactions))
	for i, tx := range report.Transactions {
		if tx.Classification.IsZero() {
			tx.Classification = r.Classifier.Classify(tx, job.Identity)
			if !tx.Classification.Matched() {
				rr.Misses = append(rr.Misses, tx)
			}
		}
		txs[i] = tx
	}
	rr.Transactions = txs
	return rr
}

// Plan builds jobs for files from the configured sources; the first
// matching pattern wins. Files no source matches get an empty format and
// are rejected by Run.
func Plan(cfg *config.Config, files []importer.FileInfo) []Job {
	currencies := cfg.CurrencySet()
	jobs := make([]Job, 0, len(files))
	for _, f := range files {
		job := Job{Name: f.Name, Path: f.Path}
		for _, s := range cfg.Sources {
			if ok, _ := filepath.Match(s.Pattern, f.Name); !ok {
				continue
			}
			job.Format = s.Format
			job.Options = importer.Options{
				Entity:     s.Entity,
				Currency:   s.Currency,
				Currencies: currencies,
			}
			if rc, ok := cfg.Report(s.Format); ok {
				job.Options.Required = rc.Required
				job.Options.Reference = rc.Reference
			}
			job.Identity = classify.Identity{Names: cfg.Identities(s.Entity)}
			break
		}
		jobs = append(jobs, job)
	}
	return jobs
}
