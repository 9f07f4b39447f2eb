package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/model"
)

// originalStatusExisting is recorded for the matched record on every audit
// row; the matched lead was already committed when the duplicate arrived.
const originalStatusExisting = "Existing"

// CampaignLookup resolves campaign provenance for audit rows.
type CampaignLookup interface {
	LookupCampaignsByIDs(ctx context.Context, ids []string) (map[string]model.CampaignRef, error)
}

// BuildDuplicateLogs turns matches into audit rows, resolving the original
// campaigns in one batched lookup. Provenance is denormalized onto each row;
// campaigns that no longer resolve are recorded as Unknown Campaign. Lookup
// failure degrades every row to Unknown rather than failing the run.
func BuildDuplicateLogs(ctx context.Context, lookup CampaignLookup, campaignID string, matches []model.DuplicateMatch) []model.DuplicateLogEntry {
	if len(matches) == 0 {
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, m := range matches {
		if m.DuplicateOfCampaignID == "" || seen[m.DuplicateOfCampaignID] {
			continue
		}
		seen[m.DuplicateOfCampaignID] = true
		ids = append(ids, m.DuplicateOfCampaignID)
	}

	refs := map[string]model.CampaignRef{}
	if len(ids) > 0 {
		resolved, err := lookup.LookupCampaignsByIDs(ctx, ids)
		if err != nil {
			zap.L().Warn("campaign provenance lookup failed, logging duplicates as unknown origin",
				zap.Int("campaigns", len(ids)),
				zap.Error(err))
		} else {
			refs = resolved
		}
	}

	entries := make([]model.DuplicateLogEntry, 0, len(matches))
	for _, m := range matches {
		entry := model.DuplicateLogEntry{
			CampaignID:           campaignID,
			LeadID:               nil, // duplicates are never saved as leads
			DuplicateParcelID:    m.Lead.ParcelID,
			DuplicateAddress:     m.Lead.OriginalAddress,
			DuplicateOwnerName:   m.Lead.OwnerFullName,
			DuplicateState:       m.Lead.State,
			DuplicateMarket:      m.Lead.Market,
			OriginalLeadID:       m.DuplicateOfLeadID,
			OriginalStatus:       originalStatusExisting,
			MatchType:            m.MatchType,
			MatchedOn:            m.MatchedOn,
			OriginalCampaignName: model.UnknownCampaignName,
		}
		if ref, ok := refs[m.DuplicateOfCampaignID]; ok {
			entry.OriginalCampaignName = ref.Name
			uploadDate := ref.UploadDate
			entry.OriginalUploadDate = &uploadDate
		}
		entries = append(entries, entry)
	}
	return entries
}
