package metrics

// Pre-defined broker metrics. Created eagerly so callers can increment
// without nil checks or registry lookups on the hot path.
var (
	// OrdersReceived counts orders delivered by the stream.
	OrdersReceived = NewCounter("broker/orders/received")
	// OrdersFulfilled counts orders fulfilled and submitted.
	OrdersFulfilled = NewCounter("broker/orders/fulfilled")
	// OrdersFailed counts orders whose pipeline errored.
	OrdersFailed = NewCounter("broker/orders/failed")
	// OrdersSkipped counts orders dropped before proving, expired or
	// unusable offers.
	OrdersSkipped = NewCounter("broker/orders/skipped")
	// ProofsInFlight gauges pipelines currently holding a proving slot.
	ProofsInFlight = NewGauge("prover/proofs/inflight")
	// FulfillTime tracks end-to-end pipeline duration in seconds.
	FulfillTime = NewSummary("prover/fulfill/seconds")
)

// Overview returns the current values of the broker metrics keyed by
// metric name, in a shape the structured logger can emit directly.
func Overview() map[string]any {
	ft := FulfillTime.Stats()
	return map[string]any{
		OrdersReceived.Name():  OrdersReceived.Value(),
		OrdersFulfilled.Name(): OrdersFulfilled.Value(),
		OrdersFailed.Name():    OrdersFailed.Value(),
		OrdersSkipped.Name():   OrdersSkipped.Value(),
		ProofsInFlight.Name():  ProofsInFlight.Value(),
		FulfillTime.Name():     ft.Mean,
	}
}
