package dbgloc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	skipOrigin   = "origin"
	skipExcluded = "excluded"
	skipNoFile   = "no_file"

	backfillFilled    = "filled"
	backfillSkipped   = "skipped"
	backfillUnmatched = "unmatched"
)

type metrics struct {
	subprogramsCreated prometheus.Counter
	subprogramsSkipped *prometheus.CounterVec
	locationsCreated   prometheus.Counter
	lookupMisses       prometheus.Counter
	backfillFunctions  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		subprogramsCreated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "dbgloc",
			Name:      "subprograms_created_total",
			Help:      "Total number of function debug scopes created.",
		}),
		subprogramsSkipped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbgloc",
			Name:      "subprograms_skipped_total",
			Help:      "Total number of functions refused a debug scope, by reason.",
		}, []string{"reason"}),
		locationsCreated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "dbgloc",
			Name:      "locations_created_total",
			Help:      "Total number of debug locations materialized.",
		}),
		lookupMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "dbgloc",
			Name:      "lookup_misses_total",
			Help:      "Total number of location lookups for addresses without a known line.",
		}),
		backfillFunctions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbgloc",
			Name:      "backfill_functions_total",
			Help:      "Total number of functions visited by the backfill pass, by result.",
		}, []string{"result"}),
	}
}
