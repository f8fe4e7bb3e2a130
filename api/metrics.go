package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/nrtkbb/fsrecon/db"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/nrtkbb/fsrecon/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const scrapeTimeout = 5 * time.Second

// historyCollector reads the run history at scrape time, so the figures
// always match what the store holds.
type historyCollector struct {
	db       *sql.DB
	runs     *prometheus.Desc
	outcomes *prometheus.Desc
	up       *prometheus.Desc
}

func newHistoryCollector(database *sql.DB) *historyCollector {
	return &historyCollector{
		db: database,
		runs: prometheus.NewDesc(
			"fsrecon_runs_total", "Reconciliation runs recorded in the history database.", nil, nil),
		outcomes: prometheus.NewDesc(
			"fsrecon_outcomes_total", "Per-file outcomes recorded across all runs.", []string{"outcome"}, nil),
		up: prometheus.NewDesc(
			"fsrecon_history_up", "Whether the last scrape could read the history database.", nil, nil),
	}
}

func (c *historyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runs
	ch <- c.outcomes
	ch <- c.up
}

func (c *historyCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	runs, err := db.CountRuns(ctx, c.db)
	if err == nil {
		var totals map[models.Outcome]int
		totals, err = db.OutcomeTotals(ctx, c.db)
		if err == nil {
			ch <- prometheus.MustNewConstMetric(c.runs, prometheus.CounterValue, float64(runs))
			for outcome, n := range totals {
				ch <- prometheus.MustNewConstMetric(c.outcomes, prometheus.CounterValue, float64(n), string(outcome))
			}
		}
	}

	up := 1.0
	if err != nil {
		logger := logging.GetLogger("api")
		logger.Warn().Err(err).Msg("Metrics scrape could not read history")
		up = 0
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up)
}

// MetricsHandler serves the history collector on its own registry.
func MetricsHandler(database *sql.DB) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(newHistoryCollector(database))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
