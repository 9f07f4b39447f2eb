package dedupe

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/model"
)

// Finder is the slice of the store the match index needs. Lookups that fail
// are treated as no-match so a flaky database degrades detection instead of
// aborting the run.
type Finder interface {
	FindByParcelIDs(ctx context.Context, parcelIDs []string, state string) ([]model.ExistingLead, error)
	FindByAddressKey(ctx context.Context, normalizedAddress, city, state, zip string) (*model.ExistingLead, error)
}

// MatchIndex holds the existing records a chunk of candidate leads can
// collide with, keyed for O(1) classification.
type MatchIndex struct {
	parcel  map[string]model.ExistingLead
	address map[string]model.ExistingLead
}

// BuildIndex loads the existing records relevant to the given leads. Parcel
// ids are fetched in one batched query; address lookups are issued per
// distinct key, but only for leads that cannot be settled by parcel id
// (no parcel id, or parcel id unseen in the state).
func BuildIndex(ctx context.Context, finder Finder, leads []model.Lead, state string) (*MatchIndex, error) {
	idx := &MatchIndex{
		parcel:  make(map[string]model.ExistingLead),
		address: make(map[string]model.ExistingLead),
	}

	var parcelIDs []string
	seen := make(map[string]bool)
	for _, l := range leads {
		if !l.HasParcelID() || seen[l.ParcelID] {
			continue
		}
		seen[l.ParcelID] = true
		parcelIDs = append(parcelIDs, l.ParcelID)
	}

	if len(parcelIDs) > 0 {
		existing, err := finder.FindByParcelIDs(ctx, parcelIDs, state)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zap.L().Warn("parcel lookup failed, treating chunk as unmatched",
				zap.Int("parcel_ids", len(parcelIDs)),
				zap.String("state", state),
				zap.Error(err))
		}
		// Rows arrive oldest first; the first row per parcel id wins.
		for _, e := range existing {
			if _, ok := idx.parcel[e.ParcelID]; !ok {
				idx.parcel[e.ParcelID] = e
			}
		}
	}

	seenAddr := make(map[string]bool)
	for _, l := range leads {
		if l.HasParcelID() {
			if _, ok := idx.parcel[l.ParcelID]; ok {
				continue
			}
		}
		key := l.AddressKey()
		if seenAddr[key] {
			continue
		}
		seenAddr[key] = true

		existing, err := finder.FindByAddressKey(ctx, l.NormalizedAddress, l.City, l.State, l.ZipCode)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zap.L().Warn("address lookup failed, treating as unmatched",
				zap.String("address", l.NormalizedAddress),
				zap.Error(err))
			continue
		}
		if existing != nil {
			idx.address[key] = *existing
		}
	}

	return idx, nil
}
