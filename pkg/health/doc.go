// Package health maintains a sliding window of request-serving health
// metrics for rollback trigger evaluation.
//
// Samples are produced by an external collaborator (the request-serving
// pipeline) and appended to a Window, which prunes entries older than a
// retention horizon (one hour by default). Aggregate summarizes the retained
// samples over a trigger rule's span: request counts are summed, rate fields
// are averaged. An empty span yields ErrInsufficientData rather than a zero
// aggregate so callers can tell "healthy" apart from "no evidence".
//
//	window := health.NewWindow()
//	window.Append(health.Sample{RequestCount: 120, FailedRequests: 3})
//
//	agg, err := window.Aggregate(5 * time.Minute)
//	if errors.Is(err, health.ErrInsufficientData) {
//		// not enough traffic yet; skip rule evaluation
//	}
package health
