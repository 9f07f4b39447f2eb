package model

import (
	"fmt"
	"time"
)

// MatchType identifies which duplicate rule matched a lead.
type MatchType string

const (
	// MatchTypeParcelID means the lead's parcel id matched an existing
	// record in the same state. Parcel ids are jurisdiction-issued and
	// authoritative when present.
	MatchTypeParcelID MatchType = "parcel_id"
	// MatchTypeAddress means the normalized address + city + state + zip
	// matched an existing record. Exact match only.
	MatchTypeAddress MatchType = "address"
)

// Description returns the human-readable match label shown in reports.
func (m MatchType) Description() string {
	if m == MatchTypeParcelID {
		return "Parcel ID + State"
	}
	return "Address Match"
}

// DuplicateMatch pairs a candidate lead with the existing record it
// collided with.
type DuplicateMatch struct {
	Lead                  Lead      `json:"lead"`
	DuplicateOfLeadID     string    `json:"duplicate_of_lead_id"`
	DuplicateOfCampaignID string    `json:"duplicate_of_campaign_id"`
	MatchType             MatchType `json:"match_type"`
	MatchedOn             string    `json:"matched_on"`
}

// MatchedOnAddress formats the matched-on description for an address match.
func MatchedOnAddress(l Lead) string {
	return fmt.Sprintf("%s, %s, %s %s", l.NormalizedAddress, l.City, l.State, l.ZipCode)
}

// UnknownCampaignName is recorded on duplicate-log rows whose original
// campaign no longer resolves.
const UnknownCampaignName = "Unknown Campaign"

// DuplicateLogEntry is one immutable audit row per detected duplicate.
// Original-campaign fields are denormalized copies so the row survives
// deletion of the campaign it references.
type DuplicateLogEntry struct {
	ID                   string     `json:"id"`
	CampaignID           string     `json:"campaign_id"`
	LeadID               *string    `json:"lead_id,omitempty"` // always nil: duplicates are never saved as leads
	DuplicateParcelID    string     `json:"duplicate_parcel_id,omitempty"`
	DuplicateAddress     string     `json:"duplicate_address"`
	DuplicateOwnerName   string     `json:"duplicate_owner_name,omitempty"`
	DuplicateState       string     `json:"duplicate_state"`
	DuplicateMarket      string     `json:"duplicate_market,omitempty"`
	OriginalLeadID       string     `json:"original_lead_id"`
	OriginalStatus       string     `json:"original_status"`
	MatchType            MatchType  `json:"match_type"`
	MatchedOn            string     `json:"matched_on"`
	OriginalCampaignName string     `json:"original_campaign_name"`
	OriginalUploadDate   *time.Time `json:"original_upload_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}
