// Package metrics defines the prometheus collectors updated by the
// profile storage engine. Exposition is left to the process embedding the
// engine, which registers the collectors with Register.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for profile store metrics.
const (
	EventsTotalKey     = "profilestore_events_total"
	RollbacksTotalKey  = "profilestore_rollbacks_total"
	MigrationsTotalKey = "profilestore_migrations_total"
	InternedPlacesKey  = "profilestore_interned_places"

	Fail = "fail"
	Ok   = "ok"
)

// Collectors for profile store metrics.
var (
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: EventsTotalKey,
		Help: "Cumulative number of logical writes, by kind and status.",
	}, []string{"kind", "status"})
	RollbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: RollbacksTotalKey,
		Help: "Cumulative number of write transactions rolled back.",
	})
	MigrationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MigrationsTotalKey,
		Help: "Cumulative number of schema create and upgrade steps, by step and status.",
	}, []string{"step", "status"})
	InternedPlaces = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: InternedPlacesKey,
		Help: "Number of places held by the most recently updated place cache.",
	})
)

// Collectors returns every collector defined by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		EventsTotal,
		RollbacksTotal,
		MigrationsTotal,
		InternedPlaces,
	}
}

// Register registers all collectors with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
