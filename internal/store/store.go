package store

import (
	"context"

	"github.com/sells-group/lead-engine/internal/model"
)

// CampaignFilter specifies criteria for listing campaigns.
type CampaignFilter struct {
	Market string               `json:"market,omitempty"`
	State  string               `json:"state,omitempty"`
	Status model.CampaignStatus `json:"status,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Duplicate lookups
	FindByParcelIDs(ctx context.Context, parcelIDs []string, state string) ([]model.ExistingLead, error)
	FindByAddressKey(ctx context.Context, normalizedAddress, city, state, zip string) (*model.ExistingLead, error)

	// Leads
	InsertLeads(ctx context.Context, campaignID string, leads []model.Lead) error
	InsertLead(ctx context.Context, campaignID string, lead model.Lead) error

	// Duplicate audit log
	InsertDuplicateLogs(ctx context.Context, entries []model.DuplicateLogEntry) error

	// Campaigns
	CreateCampaign(ctx context.Context, c model.Campaign) (*model.Campaign, error)
	UpdateCampaign(ctx context.Context, campaignID string, patch model.CampaignPatch) error
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error)
	LookupCampaignsByIDs(ctx context.Context, ids []string) (map[string]model.CampaignRef, error)

	// Markets
	ListMarkets(ctx context.Context) ([]model.Market, error)
	GetMarketByCode(ctx context.Context, code string) (*model.Market, error)
	UpsertMarkets(ctx context.Context, markets []model.Market) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
