package health

import "time"

// Sample is a point-in-time snapshot of request-serving health, produced by
// an external metrics source and fed into a Window.
type Sample struct {
	Timestamp          time.Time `json:"timestamp"`
	ErrorRate          float64   `json:"error_rate"`
	AvgLatencyMS       float64   `json:"avg_latency_ms"`
	FalsePositiveRate  float64   `json:"false_positive_rate"`
	RequestCount       int       `json:"request_count"`
	SuccessfulRequests int       `json:"successful_requests"`
	FailedRequests     int       `json:"failed_requests"`
	BlockedRequests    int       `json:"blocked_requests"`
	FlaggedRequests    int       `json:"flagged_requests"`
	CPUPercent         float64   `json:"cpu_percent"`
	MemoryMB           float64   `json:"memory_mb"`
}

// Aggregate summarizes the samples observed over a window span. Counts are
// summed; rate fields are averaged over the contributing samples.
type Aggregate struct {
	Span               time.Duration `json:"span"`
	SampleCount        int           `json:"sample_count"`
	RequestCount       int           `json:"request_count"`
	SuccessfulRequests int           `json:"successful_requests"`
	FailedRequests     int           `json:"failed_requests"`
	BlockedRequests    int           `json:"blocked_requests"`
	FlaggedRequests    int           `json:"flagged_requests"`
	AvgErrorRate       float64       `json:"avg_error_rate"`
	AvgLatencyMS       float64       `json:"avg_latency_ms"`
	AvgFalsePositive   float64       `json:"avg_false_positive_rate"`
}

// ErrorRatio returns failed requests over total requests, the primary
// signal for error-rate trigger rules. Returns 0 when no requests were seen.
func (a Aggregate) ErrorRatio() float64 {
	if a.RequestCount == 0 {
		return 0
	}
	return float64(a.FailedRequests) / float64(a.RequestCount)
}
