// Package ingest commits a checked batch: persists valid-new leads, writes
// the duplicate audit log, and maintains the campaign lifecycle.
package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/model"
)

// DefaultBatchSize bounds how many leads are written per COPY.
const DefaultBatchSize = 100

// LeadWriter is the slice of the store the persister needs.
type LeadWriter interface {
	InsertLeads(ctx context.Context, campaignID string, leads []model.Lead) error
	InsertLead(ctx context.Context, campaignID string, lead model.Lead) error
}

// SaveProgress reports persistence progress after every batch and every
// fallback insert.
type SaveProgress struct {
	Total        int `json:"total"`
	Saved        int `json:"saved"`
	Failed       int `json:"failed"`
	CurrentBatch int `json:"current_batch"`
	TotalBatches int `json:"total_batches"`
}

// ProgressFunc receives save progress. May be nil.
type ProgressFunc func(SaveProgress)

// FailedLead pairs a lead that could not be written with the rejection
// reason from its individual insert attempt.
type FailedLead struct {
	Lead   model.Lead `json:"lead"`
	Reason string     `json:"reason"`
}

// Persister writes leads in batches with a per-row fallback when a batch is
// rejected, so one bad record cannot sink its batch.
type Persister struct {
	writer    LeadWriter
	batchSize int
}

// NewPersister returns a Persister. batchSize <= 0 falls back to
// DefaultBatchSize.
func NewPersister(writer LeadWriter, batchSize int) *Persister {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Persister{writer: writer, batchSize: batchSize}
}

// Save writes leads for a campaign. Each record is attempted at most twice:
// once inside its batch, once individually if the batch fails. Every input
// lead is accounted for as either saved or failed. The returned error is
// non-nil only when the context ends the run early.
func (p *Persister) Save(ctx context.Context, campaignID string, leads []model.Lead, onProgress ProgressFunc) (int, []FailedLead, error) {
	total := len(leads)
	totalBatches := (total + p.batchSize - 1) / p.batchSize

	var saved int
	var failed []FailedLead

	report := func(batch int) {
		if onProgress != nil {
			onProgress(SaveProgress{
				Total:        total,
				Saved:        saved,
				Failed:       len(failed),
				CurrentBatch: batch,
				TotalBatches: totalBatches,
			})
		}
	}

	for start := 0; start < total; start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return saved, failed, err
		}

		end := start + p.batchSize
		if end > total {
			end = total
		}
		batch := leads[start:end]
		batchNum := start/p.batchSize + 1

		if err := p.writer.InsertLeads(ctx, campaignID, batch); err != nil {
			if ctx.Err() != nil {
				return saved, failed, ctx.Err()
			}
			zap.L().Warn("batch insert failed, retrying rows individually",
				zap.String("campaign_id", campaignID),
				zap.Int("batch", batchNum),
				zap.Int("size", len(batch)),
				zap.Error(err))

			for _, l := range batch {
				if err := ctx.Err(); err != nil {
					return saved, failed, err
				}
				if err := p.writer.InsertLead(ctx, campaignID, l); err != nil {
					if ctx.Err() != nil {
						return saved, failed, ctx.Err()
					}
					failed = append(failed, FailedLead{Lead: l, Reason: err.Error()})
				} else {
					saved++
				}
				report(batchNum)
			}
			continue
		}

		saved += len(batch)
		report(batchNum)
	}

	if len(failed) > 0 {
		zap.L().Warn("some leads could not be saved",
			zap.String("campaign_id", campaignID),
			zap.Int("saved", saved),
			zap.Int("failed", len(failed)))
	}

	return saved, failed, nil
}
