package dedupe

import (
	"github.com/sells-group/lead-engine/internal/model"
)

// Classify matches one lead against the index. Parcel id takes precedence
// over address: a jurisdiction-issued id identifies the property even when
// the address is written differently.
func (idx *MatchIndex) Classify(l model.Lead) (model.DuplicateMatch, bool) {
	if l.HasParcelID() {
		if existing, ok := idx.parcel[l.ParcelID]; ok {
			return model.DuplicateMatch{
				Lead:                  l,
				DuplicateOfLeadID:     existing.ID,
				DuplicateOfCampaignID: existing.CampaignID,
				MatchType:             model.MatchTypeParcelID,
				MatchedOn:             l.ParcelID,
			}, true
		}
	}

	if existing, ok := idx.address[l.AddressKey()]; ok {
		return model.DuplicateMatch{
			Lead:                  l,
			DuplicateOfLeadID:     existing.ID,
			DuplicateOfCampaignID: existing.CampaignID,
			MatchType:             model.MatchTypeAddress,
			MatchedOn:             model.MatchedOnAddress(l),
		}, true
	}

	return model.DuplicateMatch{}, false
}
