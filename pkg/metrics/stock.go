package metrics

import "github.com/prometheus/client_golang/prometheus"

// StockMetrics registra movimientos del libro de stock, conflictos optimistas y compensaciones.
type StockMetrics struct {
	movements     *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

// NewStockMetrics registra las métricas en reg. Con reg nil devuelve un colector inerte.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_ledger_entries_total",
		Help: "Entradas escritas en el libro de stock.",
	}, []string{"scope", "type"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_concurrent_modifications_total",
		Help: "Escrituras rechazadas por una guarda optimista.",
	}, []string{"operation"})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_compensations_total",
		Help: "Acciones compensatorias ejecutadas tras un fallo parcial.",
	}, []string{"result"})
	reg.MustRegister(movements, conflicts, compensations)
	return &StockMetrics{
		movements:     movements,
		conflicts:     conflicts,
		compensations: compensations,
	}
}

// IncMovement cuenta una entrada escrita.
func (m *StockMetrics) IncMovement(scope, txType string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(scope), normalizeLabel(txType)).Inc()
}

// IncConflict cuenta un rechazo por modificación concurrente.
func (m *StockMetrics) IncConflict(operation string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncCompensation cuenta una compensación; result es "ok" o "failed".
func (m *StockMetrics) IncCompensation(result string) {
	if m == nil || m.compensations == nil {
		return
	}
	m.compensations.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
