package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/store"
)

// fakeStore is an in-memory Store covering what an import run touches.
type fakeStore struct {
	mu sync.Mutex

	existingByParcel map[string]model.ExistingLead
	existingByAddr   map[string]model.ExistingLead
	refs             map[string]model.CampaignRef

	campaigns map[string]*model.Campaign
	leads     map[string][]model.Lead
	logs      []model.DuplicateLogEntry

	poisoned    map[string]bool
	finalizeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		existingByParcel: map[string]model.ExistingLead{},
		existingByAddr:   map[string]model.ExistingLead{},
		refs:             map[string]model.CampaignRef{},
		campaigns:        map[string]*model.Campaign{},
		leads:            map[string][]model.Lead{},
		poisoned:         map[string]bool{},
	}
}

func (f *fakeStore) FindByParcelIDs(_ context.Context, ids []string, state string) ([]model.ExistingLead, error) {
	var out []model.ExistingLead
	for _, id := range ids {
		if e, ok := f.existingByParcel[id+"|"+state]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) FindByAddressKey(_ context.Context, addr, city, state, zip string) (*model.ExistingLead, error) {
	if e, ok := f.existingByAddr[model.AddressKey(addr, city, state, zip)]; ok {
		return &e, nil
	}
	return nil, nil
}

func (f *fakeStore) InsertLeads(_ context.Context, campaignID string, leads []model.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range leads {
		if f.poisoned[l.ParcelID] {
			return eris.New("duplicate key value violates unique constraint")
		}
	}
	f.leads[campaignID] = append(f.leads[campaignID], leads...)
	return nil
}

func (f *fakeStore) InsertLead(_ context.Context, campaignID string, lead model.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.poisoned[lead.ParcelID] {
		return eris.New("duplicate key value violates unique constraint")
	}
	f.leads[campaignID] = append(f.leads[campaignID], lead)
	return nil
}

func (f *fakeStore) InsertDuplicateLogs(_ context.Context, entries []model.DuplicateLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, entries...)
	return nil
}

func (f *fakeStore) CreateCampaign(_ context.Context, c model.Campaign) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = "camp-test"
	}
	if c.Status == "" {
		c.Status = model.CampaignStatusActive
	}
	c.UploadDate = time.Now().UTC()
	f.campaigns[c.ID] = &c
	return &c, nil
}

func (f *fakeStore) UpdateCampaign(_ context.Context, id string, patch model.CampaignPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil && patch.Status == nil {
		return f.finalizeErr
	}
	c, ok := f.campaigns[id]
	if !ok {
		return eris.Errorf("campaign not found: %s", id)
	}
	if patch.NewLeadsCount != nil {
		c.NewLeadsCount = *patch.NewLeadsCount
	}
	if patch.ProcessingTimeSeconds != nil {
		c.ProcessingTimeSeconds = *patch.ProcessingTimeSeconds
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	return nil
}

func (f *fakeStore) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.campaigns[id], nil
}

func (f *fakeStore) ListCampaigns(context.Context, store.CampaignFilter) ([]model.Campaign, error) {
	return nil, nil
}

func (f *fakeStore) LookupCampaignsByIDs(_ context.Context, ids []string) (map[string]model.CampaignRef, error) {
	out := make(map[string]model.CampaignRef)
	for _, id := range ids {
		if r, ok := f.refs[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (f *fakeStore) ListMarkets(context.Context) ([]model.Market, error)         { return nil, nil }
func (f *fakeStore) GetMarketByCode(context.Context, string) (*model.Market, error) { return nil, nil }
func (f *fakeStore) UpsertMarkets(context.Context, []model.Market) (int64, error)   { return 0, nil }
func (f *fakeStore) Migrate(context.Context) error                                  { return nil }
func (f *fakeStore) Ping(context.Context) error                                     { return nil }
func (f *fakeStore) Close() error                                                   { return nil }

func mkeMarket() model.Market {
	return model.Market{
		MarketCode:   "MKE",
		MarketName:   "Milwaukee",
		State:        "WI",
		StateFull:    "Wisconsin",
		ParcelIDType: "Tax Key Number",
	}
}

func TestImportRun(t *testing.T) {
	fs := newFakeStore()
	fs.existingByParcel["111-1111-111|WI"] = model.ExistingLead{
		ID: "lead-old", ParcelID: "111-1111-111", CampaignID: "camp-old",
	}
	fs.refs["camp-old"] = model.CampaignRef{
		ID: "camp-old", Name: "DM_Absentee_2024-10_V1",
		UploadDate: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	}

	leads := append(makeLeads(4),
		model.Lead{ // duplicate by parcel
			OriginalAddress:   "1 Elm Street",
			NormalizedAddress: "1 ELM ST",
			City:              "Milwaukee",
			State:             "WI",
			ZipCode:           "53202",
			ParcelID:          "111-1111-111",
		},
		model.Lead{City: "Milwaukee", State: "WI", ZipCode: "53202"}, // invalid
	)

	im := NewImporter(fs, 500, 100)
	result, err := im.Run(context.Background(), ImportRequest{
		Leads:        leads,
		CampaignName: "DM_Absentee_2024-11_V1",
		CampaignType: "Absentee",
		Market:       mkeMarket(),
		FileName:     "leads.csv",
	}, nil)
	require.NoError(t, err)

	require.NotNil(t, result.Campaign)
	c := fs.campaigns[result.Campaign.ID]
	require.NotNil(t, c)
	assert.Equal(t, 6, c.TotalRecords)
	assert.Equal(t, 4, c.NewLeadsCount)
	assert.Equal(t, 1, c.DuplicatesFound)
	assert.Equal(t, 1, c.InvalidCount)
	assert.Equal(t, model.CampaignStatusActive, c.Status)
	assert.Equal(t, 4, c.SkipTraceNeeded)
	assert.InDelta(t, 0.75, c.SkipTraceSavings, 0.001)
	assert.InDelta(t, 100.0/6.0, c.DuplicateRate, 0.001)

	assert.Equal(t, 4, result.Saved)
	assert.Empty(t, result.Failed)
	assert.Len(t, fs.leads[result.Campaign.ID], 4)

	require.Equal(t, 1, result.Logged)
	require.Len(t, fs.logs, 1)
	assert.Equal(t, "DM_Absentee_2024-10_V1", fs.logs[0].OriginalCampaignName)
	assert.Equal(t, result.Campaign.ID, fs.logs[0].CampaignID)
}

func TestImportRunInvalidCampaignName(t *testing.T) {
	im := NewImporter(newFakeStore(), 500, 100)
	_, err := im.Run(context.Background(), ImportRequest{
		Leads:        makeLeads(1),
		CampaignName: "bad name",
		Market:       mkeMarket(),
	}, nil)
	assert.ErrorContains(t, err, "invalid campaign name")
}

func TestImportRunDryRun(t *testing.T) {
	fs := newFakeStore()
	im := NewImporter(fs, 500, 100)

	result, err := im.Run(context.Background(), ImportRequest{
		Leads:        makeLeads(3),
		CampaignName: "DM_Absentee_2024-11_V1",
		Market:       mkeMarket(),
		DryRun:       true,
	}, nil)
	require.NoError(t, err)

	assert.Nil(t, result.Campaign)
	assert.Len(t, result.Summary.ValidNew, 3)
	assert.Empty(t, fs.campaigns)
	assert.Empty(t, fs.leads)
}

func TestImportRunPartialSave(t *testing.T) {
	fs := newFakeStore()
	leads := makeLeads(150)
	fs.poisoned[leads[120].ParcelID] = true

	im := NewImporter(fs, 500, 100)
	result, err := im.Run(context.Background(), ImportRequest{
		Leads:        leads,
		CampaignName: "DM_Absentee_2024-11_V1",
		Market:       mkeMarket(),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 149, result.Saved)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 149, fs.campaigns[result.Campaign.ID].NewLeadsCount)
	assert.Equal(t, model.CampaignStatusActive, fs.campaigns[result.Campaign.ID].Status)
}

func TestImportRunFinalizeFailureMarksCampaignFailed(t *testing.T) {
	fs := newFakeStore()
	fs.finalizeErr = eris.New("connection reset")

	im := NewImporter(fs, 500, 100)
	result, err := im.Run(context.Background(), ImportRequest{
		Leads:        makeLeads(2),
		CampaignName: "DM_Absentee_2024-11_V1",
		Market:       mkeMarket(),
	}, nil)
	require.Error(t, err)
	require.NotNil(t, result.Campaign)
	assert.Equal(t, model.CampaignStatusFailed, fs.campaigns[result.Campaign.ID].Status)
}
