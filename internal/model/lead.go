package model

import (
	"strings"
	"time"
)

// Lead statuses stamped on every newly imported record.
const (
	LeadStatusNew             = "New"
	SyncStatusNotSynced       = "Not Synced"
	SkipTraceStatusNotStarted = "Not Started"
)

// Lead is a mapped candidate record as handed to the ingestion pipeline.
// OriginalAddress holds the address exactly as supplied; NormalizedAddress
// is the canonicalized form used for duplicate keying.
type Lead struct {
	OriginalAddress   string `json:"original_address"`
	NormalizedAddress string `json:"normalized_address"`
	City              string `json:"city"`
	State             string `json:"state"`
	StateFull         string `json:"state_full,omitempty"`
	ZipCode           string `json:"zip_code"`
	ParcelID          string `json:"parcel_id,omitempty"`
	ParcelIDType      string `json:"parcel_id_type,omitempty"`
	OwnerFirstName    string `json:"owner_first_name,omitempty"`
	OwnerLastName     string `json:"owner_last_name,omitempty"`
	OwnerFullName     string `json:"owner_full_name,omitempty"`
	MailingAddress    string `json:"mailing_address,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	Market            string `json:"market,omitempty"`

	Status          string `json:"status,omitempty"`
	SyncStatus      string `json:"sync_status,omitempty"`
	SkipTraceStatus string `json:"skip_trace_status,omitempty"`
	ContactAttempts int    `json:"contact_attempts"`

	// Extra holds mapped canonical fields with no dedicated column.
	Extra map[string]string `json:"extra,omitempty"`
}

// HasParcelID reports whether the lead carries a usable parcel identifier.
func (l Lead) HasParcelID() bool {
	return strings.TrimSpace(l.ParcelID) != ""
}

// AddressKey returns the exact-match duplicate key for the lead's address.
func (l Lead) AddressKey() string {
	return AddressKey(l.NormalizedAddress, l.City, l.State, l.ZipCode)
}

// AddressKey builds the composite address lookup key shared by the match
// index and the classifier.
func AddressKey(normalizedAddress, city, state, zip string) string {
	return normalizedAddress + "|" + city + "|" + state + "|" + zip
}

// ExistingLead is a previously committed lead as returned by duplicate
// lookups. Soft-deleted rows never reach the match index.
type ExistingLead struct {
	ID                string    `json:"id"`
	ParcelID          string    `json:"parcel_id,omitempty"`
	OriginalAddress   string    `json:"original_address"`
	NormalizedAddress string    `json:"normalized_address"`
	City              string    `json:"city"`
	State             string    `json:"state"`
	ZipCode           string    `json:"zip_code"`
	CampaignID        string    `json:"campaign_id"`
	CreatedAt         time.Time `json:"created_at"`
}
