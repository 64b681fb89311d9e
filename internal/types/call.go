package types

import "time"

// CallStatus is the lifecycle state of a call record. Transitions are
// one-way: NEW -> PROCESSED or NEW -> FAILED. A FAILED call is never
// retried automatically.
type CallStatus string

const (
	StatusNew       CallStatus = "NEW"
	StatusProcessed CallStatus = "PROCESSED"
	StatusFailed    CallStatus = "FAILED"
)

// CallRecord is one phone call as ingested from the PBX. The ID is assigned
// by the telephony source and never regenerated locally.
type CallRecord struct {
	ID       string        `json:"call_id"`
	Date     time.Time     `json:"date"`
	Operator string        `json:"operator"`
	Phone    string        `json:"phone,omitempty"`
	Duration int           `json:"duration"` // whole seconds
	AudioURL string        `json:"audio_url,omitempty"`
	Status   CallStatus    `json:"status"`
	Analysis *RubricResult `json:"analysis,omitempty"`
}

// Minutes returns the call duration converted to minutes.
func (c *CallRecord) Minutes() float64 {
	return float64(c.Duration) / 60.0
}

// BatchStats summarizes one batch-processing run.
type BatchStats struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}
