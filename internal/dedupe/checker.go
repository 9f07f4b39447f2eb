package dedupe

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/model"
)

// DefaultChunkSize bounds how many leads are indexed and classified per
// database round trip.
const DefaultChunkSize = 500

// Checker runs chunked duplicate detection against a Finder.
type Checker struct {
	finder    Finder
	chunkSize int
}

// NewChecker returns a Checker. chunkSize <= 0 falls back to
// DefaultChunkSize.
func NewChecker(finder Finder, chunkSize int) *Checker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Checker{finder: finder, chunkSize: chunkSize}
}

// Run classifies leads chunk by chunk, streaming ProgressEvents and ending
// with a CompleteEvent, or an ErrorEvent if the context is canceled. The
// channel is closed when the run ends.
func (c *Checker) Run(ctx context.Context, leads []model.Lead, state string) <-chan Event {
	events := make(chan Event, 1)

	go func() {
		defer close(events)

		summary := &Summary{TotalRecords: len(leads)}
		totalChunks := (len(leads) + c.chunkSize - 1) / c.chunkSize

		for start := 0; start < len(leads); start += c.chunkSize {
			end := start + c.chunkSize
			if end > len(leads) {
				end = len(leads)
			}
			chunk := leads[start:end]

			valid := make([]model.Lead, 0, len(chunk))
			for _, l := range chunk {
				if reason, ok := Validate(l); !ok {
					summary.Invalid = append(summary.Invalid, InvalidLead{Lead: l, Reason: reason})
				} else {
					valid = append(valid, l)
				}
			}

			idx, err := BuildIndex(ctx, c.finder, valid, state)
			if err != nil {
				sendEvent(ctx, events, ErrorEvent{Err: err})
				return
			}

			for _, l := range valid {
				if match, ok := idx.Classify(l); ok {
					summary.Duplicates = append(summary.Duplicates, match)
				} else {
					summary.ValidNew = append(summary.ValidNew, l)
				}
			}

			if !sendEvent(ctx, events, ProgressEvent{
				CurrentChunk: start/c.chunkSize + 1,
				TotalChunks:  totalChunks,
				Processed:    end,
				TotalRecords: len(leads),
				ValidNew:     len(summary.ValidNew),
				Duplicates:   len(summary.Duplicates),
				Invalid:      len(summary.Invalid),
			}) {
				return
			}
		}

		zap.L().Info("duplicate check complete",
			zap.Int("total", summary.TotalRecords),
			zap.Int("valid_new", len(summary.ValidNew)),
			zap.Int("duplicates", len(summary.Duplicates)),
			zap.Int("invalid", len(summary.Invalid)))

		sendEvent(ctx, events, CompleteEvent{Summary: summary})
	}()

	return events
}

// sendEvent delivers ev unless the consumer's context ends first, so an
// abandoned stream never strands the producer goroutine.
func sendEvent(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Check runs synchronously, draining the event stream and returning the
// final summary.
func (c *Checker) Check(ctx context.Context, leads []model.Lead, state string) (*Summary, error) {
	for ev := range c.Run(ctx, leads, state) {
		switch e := ev.(type) {
		case CompleteEvent:
			return e.Summary, nil
		case ErrorEvent:
			return nil, e.Err
		}
	}
	// The stream ends without a terminal event only when ctx is canceled
	// mid-send.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, context.Canceled
}
