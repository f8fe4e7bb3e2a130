package models

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
)

// Report is the structured result of one reconciliation run.
type Report struct {
	RunID        string        `json:"run_id"`
	Canonical    string        `json:"canonical"`
	Incoming     string        `json:"incoming"`
	DryRun       bool          `json:"dry_run"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Present      int           `json:"present"`
	New          int           `json:"new"`
	Deletions    []FileOutcome `json:"deletions"`
	Migrations   []FileOutcome `json:"migrations"`
	ReadFailures []ReadFailure `json:"read_failures,omitempty"`
}

// Outcomes returns deletions followed by migrations.
func (r *Report) Outcomes() []FileOutcome {
	all := make([]FileOutcome, 0, len(r.Deletions)+len(r.Migrations))
	all = append(all, r.Deletions...)
	return append(all, r.Migrations...)
}

// Counts tallies outcomes across both phases.
func (r *Report) Counts() map[Outcome]int {
	return lo.CountValuesBy(r.Outcomes(), func(o FileOutcome) Outcome {
		return o.Outcome
	})
}

// Err aggregates every failed step, or returns nil when none failed. Read
// failures are not included; they are skips, not failures.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, o := range r.Outcomes() {
		if o.Failed() {
			result = multierror.Append(result, fmt.Errorf("%s: %s", o.Path, o.Err))
		}
	}
	return result.ErrorOrNil()
}

// Phase names the step of a run an outcome belongs to.
type Phase string

const (
	PhaseDelete  Phase = "delete"
	PhaseMigrate Phase = "migrate"
)

// RunSummary is a stored run without its per-file outcomes.
type RunSummary struct {
	RunID        string          `json:"run_id"`
	Canonical    string          `json:"canonical"`
	Incoming     string          `json:"incoming"`
	DryRun       bool            `json:"dry_run"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Present      int             `json:"present"`
	New          int             `json:"new"`
	ReadFailures int             `json:"read_failures"`
	Counts       map[Outcome]int `json:"counts"`
}

// StoredOutcome is a FileOutcome as kept in the run history.
type StoredOutcome struct {
	FileOutcome
	Phase Phase `json:"phase"`
	Seq   int   `json:"seq"`
}
