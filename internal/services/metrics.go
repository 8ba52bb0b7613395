package affinity

import (
	"time"

	interf "github.com/glkeru/affinity/internal/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("affinity")

// метрики

var (
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_actions_total",
			Help: "Кол-во примененных действий",
		},
		[]string{"action"},
	)

	levelUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_level_ups_total",
			Help: "Кол-во повышений уровня близости",
		},
	)

	grantsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_reward_grants_total",
			Help: "Кол-во созданных наград",
		},
	)

	ledgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_ledger_entries_total",
			Help: "Кол-во записей журнала",
		},
		[]string{"source"},
	)

	insufficientTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_insufficient_balance_total",
			Help: "Кол-во отклоненных списаний",
		},
	)
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock - часы по умолчанию
func SystemClock() interf.Clock { return systemClock{} }
