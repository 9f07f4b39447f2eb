package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedCampaign(t *testing.T, s *SQLiteStore, name string) *model.Campaign {
	t.Helper()
	c, err := s.CreateCampaign(context.Background(), model.Campaign{
		Name:   name,
		State:  "WI",
		Market: "MKE",
	})
	require.NoError(t, err)
	return c
}

func TestSQLiteLeadRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	c := seedCampaign(t, s, "DM_Absentee_2024-11_V1")

	leads := []model.Lead{
		{
			OriginalAddress:   "100 Main Street",
			NormalizedAddress: "100 MAIN ST",
			City:              "Milwaukee",
			State:             "WI",
			ZipCode:           "53202",
			ParcelID:          "123-4567-890",
			ParcelIDType:      "Tax Key Number",
			Status:            model.LeadStatusNew,
			SyncStatus:        model.SyncStatusNotSynced,
			SkipTraceStatus:   model.SkipTraceStatusNotStarted,
		},
		{
			OriginalAddress:   "200 Oak Drive",
			NormalizedAddress: "200 OAK DR",
			City:              "Madison",
			State:             "WI",
			ZipCode:           "53703",
			Status:            model.LeadStatusNew,
			SyncStatus:        model.SyncStatusNotSynced,
			SkipTraceStatus:   model.SkipTraceStatusNotStarted,
		},
	}
	require.NoError(t, s.InsertLeads(ctx, c.ID, leads))

	t.Run("find by parcel ids", func(t *testing.T) {
		found, err := s.FindByParcelIDs(ctx, []string{"123-4567-890", "999-0000-111"}, "WI")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "123-4567-890", found[0].ParcelID)
		assert.Equal(t, c.ID, found[0].CampaignID)
	})

	t.Run("wrong state misses", func(t *testing.T) {
		found, err := s.FindByParcelIDs(ctx, []string{"123-4567-890"}, "IL")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("find by address key", func(t *testing.T) {
		l, err := s.FindByAddressKey(ctx, "200 OAK DR", "Madison", "WI", "53703")
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.Equal(t, "200 Oak Drive", l.OriginalAddress)
	})

	t.Run("address key no match", func(t *testing.T) {
		l, err := s.FindByAddressKey(ctx, "200 OAK DR", "Madison", "WI", "00000")
		require.NoError(t, err)
		assert.Nil(t, l)
	})
}

func TestSQLiteSoftDeletedLeadsNeverMatch(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	c := seedCampaign(t, s, "DM_Absentee_2024-11_V1")

	lead := model.Lead{
		OriginalAddress:   "100 Main Street",
		NormalizedAddress: "100 MAIN ST",
		City:              "Milwaukee",
		State:             "WI",
		ZipCode:           "53202",
		ParcelID:          "123-4567-890",
		Status:            model.LeadStatusNew,
		SyncStatus:        model.SyncStatusNotSynced,
		SkipTraceStatus:   model.SkipTraceStatusNotStarted,
	}
	require.NoError(t, s.InsertLead(ctx, c.ID, lead))

	_, err := s.db.ExecContext(ctx, `UPDATE leads SET is_deleted = 1 WHERE parcel_id = ?`, lead.ParcelID)
	require.NoError(t, err)

	byParcel, err := s.FindByParcelIDs(ctx, []string{"123-4567-890"}, "WI")
	require.NoError(t, err)
	assert.Empty(t, byParcel)

	byAddr, err := s.FindByAddressKey(ctx, "100 MAIN ST", "Milwaukee", "WI", "53202")
	require.NoError(t, err)
	assert.Nil(t, byAddr)
}

func TestSQLiteParcelUniqueConstraint(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	c := seedCampaign(t, s, "DM_Absentee_2024-11_V1")

	lead := model.Lead{
		OriginalAddress:   "100 Main Street",
		NormalizedAddress: "100 MAIN ST",
		City:              "Milwaukee",
		State:             "WI",
		ZipCode:           "53202",
		ParcelID:          "123-4567-890",
		Status:            model.LeadStatusNew,
		SyncStatus:        model.SyncStatusNotSynced,
		SkipTraceStatus:   model.SkipTraceStatusNotStarted,
	}
	require.NoError(t, s.InsertLead(ctx, c.ID, lead))
	assert.Error(t, s.InsertLead(ctx, c.ID, lead))
}

func TestSQLiteCampaignLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	c, err := s.CreateCampaign(ctx, model.Campaign{
		Name:            "PPC_Probate_2025-01_V1",
		Type:            "Probate",
		Version:         "V1",
		State:           "WI",
		Market:          "MKE",
		TotalRecords:    500,
		DuplicatesFound: 90,
		InvalidCount:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusActive, c.Status)

	newLeads := 400
	secs := 7
	require.NoError(t, s.UpdateCampaign(ctx, c.ID, model.CampaignPatch{
		NewLeadsCount:         &newLeads,
		ProcessingTimeSeconds: &secs,
	}))

	got, err := s.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 400, got.NewLeadsCount)
	assert.Equal(t, 7, got.ProcessingTimeSeconds)
	assert.Equal(t, 90, got.DuplicatesFound)

	missing, err := s.GetCampaign(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorContains(t, s.UpdateCampaign(ctx, "nope", model.CampaignPatch{NewLeadsCount: &newLeads}),
		"campaign not found")
}

func TestSQLiteListCampaigns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	seedCampaign(t, s, "DM_Absentee_2024-11_V1")
	_, err := s.CreateCampaign(ctx, model.Campaign{Name: "DM_Vacant_2024-12_V1", State: "IL", Market: "CHI"})
	require.NoError(t, err)

	all, err := s.ListCampaigns(ctx, CampaignFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mke, err := s.ListCampaigns(ctx, CampaignFilter{Market: "MKE"})
	require.NoError(t, err)
	require.Len(t, mke, 1)
	assert.Equal(t, "DM_Absentee_2024-11_V1", mke[0].Name)
}

func TestSQLiteDuplicateLogs(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	c := seedCampaign(t, s, "DM_Absentee_2024-11_V1")

	entries := []model.DuplicateLogEntry{
		{
			CampaignID:           c.ID,
			DuplicateAddress:     "100 Main Street",
			DuplicateState:       "WI",
			OriginalLeadID:       "lead-1",
			OriginalStatus:       "New",
			MatchType:            model.MatchTypeAddress,
			MatchedOn:            "100 MAIN ST, Milwaukee, WI 53202",
			OriginalCampaignName: model.UnknownCampaignName,
		},
	}
	require.NoError(t, s.InsertDuplicateLogs(ctx, entries))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM duplicate_log`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteLookupCampaignsByIDs(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	c := seedCampaign(t, s, "DM_Absentee_2024-11_V1")

	refs, err := s.LookupCampaignsByIDs(ctx, []string{c.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "DM_Absentee_2024-11_V1", refs[c.ID].Name)

	empty, err := s.LookupCampaignsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteMarkets(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	markets := []model.Market{
		{MarketCode: "MKE", MarketName: "Milwaukee", State: "WI", StateFull: "Wisconsin", ParcelIDType: "Tax Key Number"},
		{MarketCode: "CHI", MarketName: "Chicago", State: "IL", StateFull: "Illinois", ParcelIDType: "PIN"},
	}
	n, err := s.UpsertMarkets(ctx, markets)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Re-seeding updates in place instead of duplicating rows.
	markets[0].MarketName = "Milwaukee Metro"
	_, err = s.UpsertMarkets(ctx, markets)
	require.NoError(t, err)

	all, err := s.ListMarkets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "CHI", all[0].MarketCode)

	m, err := s.GetMarketByCode(ctx, "MKE")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Milwaukee Metro", m.MarketName)

	none, err := s.GetMarketByCode(ctx, "NYC")
	require.NoError(t, err)
	assert.Nil(t, none)
}
