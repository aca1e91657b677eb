package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow interfaces consumed by the
// pipeline and web packages, keeping them free of Prometheus types.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc() {
	w.m.Predictions.Inc()
}

func (w *MetricsWrapper) PredictionErrorsInc() {
	w.m.PredictionErrors.Inc()
}

func (w *MetricsWrapper) PredictionLatencyObserve(seconds float64) {
	w.m.PredictionLatency.Observe(seconds)
}

func (w *MetricsWrapper) PredictedPriceObserve(price float64) {
	w.m.PredictedPrice.Observe(price)
}

func (w *MetricsWrapper) ImputationInc(field string) {
	w.m.Imputations.WithLabelValues(field).Inc()
}

func (w *MetricsWrapper) RequestInc(route string, code int) {
	w.m.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (w *MetricsWrapper) ModelAgeSet(seconds float64) {
	w.m.ModelAge.Set(seconds)
}

func (w *MetricsWrapper) HistoryWriteErrorsInc() {
	w.m.HistoryWriteErrors.Inc()
}
