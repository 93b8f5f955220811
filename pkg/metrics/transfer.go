package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransferMetrics registra el ciclo de vida de las transferencias.
type TransferMetrics struct {
	transitions *prometheus.CounterVec
	created     *prometheus.CounterVec
	delivery    *prometheus.HistogramVec
}

// NewTransferMetrics registra las métricas en reg. Con reg nil devuelve un colector inerte.
func NewTransferMetrics(reg prometheus.Registerer) *TransferMetrics {
	if reg == nil {
		return &TransferMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_transitions_total",
		Help: "Transiciones de estado confirmadas.",
	}, []string{"from", "to"})
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transfers_created_total",
		Help: "Transferencias creadas por estado de entrada.",
	}, []string{"status"})
	delivery := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transfer_delivery_duration_seconds",
		Help:    "Duración de la entrega (movimiento de stock de todas las líneas).",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reg.MustRegister(transitions, created, delivery)
	return &TransferMetrics{
		transitions: transitions,
		created:     created,
		delivery:    delivery,
	}
}

// IncTransition cuenta una transición from -> to.
func (m *TransferMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncCreated cuenta una transferencia nueva.
func (m *TransferMetrics) IncCreated(status string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveDelivery registra la duración de un Deliver; result es "ok" o "error".
func (m *TransferMetrics) ObserveDelivery(result string, d time.Duration) {
	if m == nil || m.delivery == nil {
		return
	}
	m.delivery.WithLabelValues(normalizeLabel(result)).Observe(d.Seconds())
}
