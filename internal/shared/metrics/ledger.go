package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Contadores do ledger de apostas, expostos via /metrics
var (
	WagersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_wagers_placed_total",
		Help: "Apostas aceitas pelo wager engine",
	})

	WagersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_wagers_cancelled_total",
		Help: "Apostas canceladas e reembolsadas antes do fechamento",
	})

	WagersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_wagers_rejected_total",
		Help: "Apostas rejeitadas por erro de validação",
	}, []string{"reason"})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_settlements_total",
		Help: "Liquidações executadas por outcome",
	}, []string{"outcome"})

	PointsRedistributed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_points_redistributed_total",
		Help: "Pontos movidos do pool perdedor para vencedores",
	})
)
