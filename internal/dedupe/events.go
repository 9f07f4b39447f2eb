// Package dedupe classifies candidate leads against previously committed
// records, partitioning each batch into valid-new, duplicate, and invalid.
package dedupe

import (
	"github.com/sells-group/lead-engine/internal/model"
)

// Event is emitted on the checker's channel as a batch is processed. The
// stream ends with exactly one CompleteEvent or one ErrorEvent.
type Event interface {
	isEvent()
}

// ProgressEvent reports running totals after each processed chunk.
// CurrentChunk/TotalChunks count chunks; Processed/TotalRecords count leads.
type ProgressEvent struct {
	CurrentChunk int `json:"current"`
	TotalChunks  int `json:"total"`
	Processed    int `json:"processed"`
	TotalRecords int `json:"total_records"`
	ValidNew     int `json:"valid_new"`
	Duplicates   int `json:"duplicates"`
	Invalid      int `json:"invalid"`
}

// CompleteEvent carries the final partition of the batch.
type CompleteEvent struct {
	Summary *Summary `json:"summary"`
}

// ErrorEvent terminates the stream when the run cannot continue.
type ErrorEvent struct {
	Err error `json:"-"`
}

func (ProgressEvent) isEvent() {}
func (CompleteEvent) isEvent() {}
func (ErrorEvent) isEvent()    {}

// InvalidLead pairs a rejected lead with the reason it failed validation.
type InvalidLead struct {
	Lead   model.Lead `json:"lead"`
	Reason string     `json:"reason"`
}

// Summary is the full result of a duplicate check. Every input lead lands in
// exactly one of the three partitions.
type Summary struct {
	TotalRecords int                    `json:"total_records"`
	ValidNew     []model.Lead           `json:"valid_new"`
	Duplicates   []model.DuplicateMatch `json:"duplicates"`
	Invalid      []InvalidLead          `json:"invalid"`
}

// DuplicateRate returns the share of total records that were duplicates, in
// percent.
func (s *Summary) DuplicateRate() float64 {
	if s.TotalRecords == 0 {
		return 0
	}
	return float64(len(s.Duplicates)) / float64(s.TotalRecords) * 100
}

// SkipTraceSavings returns the estimated skip-trace spend avoided by
// filtering the duplicates, in USD.
func (s *Summary) SkipTraceSavings() float64 {
	return float64(len(s.Duplicates)) * model.SkipTraceCostPerLead
}
