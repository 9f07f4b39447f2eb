package model

import (
	"regexp"
	"time"
)

// CampaignStatus represents the lifecycle state of an import run.
type CampaignStatus string

const (
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusFailed CampaignStatus = "failed"
)

// SkipTraceCostPerLead is the per-record skip-trace cost avoided for each
// filtered duplicate, in USD.
const SkipTraceCostPerLead = 0.75

// campaignNamePattern enforces PREFIX_TYPE_YYYY-MM_VX, e.g.
// DM_Absentee_2024-11_V1.
var campaignNamePattern = regexp.MustCompile(`^[A-Z]{2,4}_[A-Za-z]+_\d{4}-(0[1-9]|1[0-2])_V\d+$`)

// ValidCampaignName reports whether name follows the campaign naming
// convention.
func ValidCampaignName(name string) bool {
	return campaignNamePattern.MatchString(name)
}

// Campaign aggregates one ingestion run. It owns every lead and
// duplicate-log row produced by that run.
type Campaign struct {
	ID                    string         `json:"id"`
	Name                  string         `json:"campaign_name"`
	Type                  string         `json:"campaign_type"`
	Version               string         `json:"campaign_version"`
	DataProvider          string         `json:"data_provider,omitempty"`
	State                 string         `json:"state"`
	Market                string         `json:"market"`
	TotalRecords          int            `json:"total_records"`
	NewLeadsCount         int            `json:"new_leads_count"`
	DuplicatesFound       int            `json:"duplicates_found"`
	InvalidCount          int            `json:"invalid_count"`
	DuplicateRate         float64        `json:"duplicate_rate"`
	SkipTraceNeeded       int            `json:"skip_trace_needed"`
	SkipTraceSavings      float64        `json:"skip_trace_savings"`
	FileName              string         `json:"file_name,omitempty"`
	FileSizeKB            int            `json:"file_size_kb"`
	Status                CampaignStatus `json:"status"`
	UploadedBy            string         `json:"uploaded_by,omitempty"`
	UploadDate            time.Time      `json:"upload_date"`
	ProcessingTimeSeconds int            `json:"processing_time_seconds"`
}

// CampaignPatch holds the fields written back after persistence completes.
// Nil fields are left untouched.
type CampaignPatch struct {
	NewLeadsCount         *int            `json:"new_leads_count,omitempty"`
	ProcessingTimeSeconds *int            `json:"processing_time_seconds,omitempty"`
	Status                *CampaignStatus `json:"status,omitempty"`
}

// CampaignRef is the slim projection used when resolving duplicate-log
// provenance.
type CampaignRef struct {
	ID         string    `json:"id"`
	Name       string    `json:"campaign_name"`
	UploadDate time.Time `json:"upload_date"`
}
