package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/model"
)

type fakeLookup struct {
	refs  map[string]model.CampaignRef
	err   error
	calls int
}

func (f *fakeLookup) LookupCampaignsByIDs(_ context.Context, ids []string) (map[string]model.CampaignRef, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]model.CampaignRef)
	for _, id := range ids {
		if r, ok := f.refs[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func sampleMatches() []model.DuplicateMatch {
	return []model.DuplicateMatch{
		{
			Lead: model.Lead{
				OriginalAddress: "100 Main Street",
				City:            "Milwaukee",
				State:           "WI",
				ZipCode:         "53202",
				ParcelID:        "123-4567-890",
				OwnerFullName:   "Jane Doe",
				Market:          "MKE",
			},
			DuplicateOfLeadID:     "lead-1",
			DuplicateOfCampaignID: "camp-old",
			MatchType:             model.MatchTypeParcelID,
			MatchedOn:             "123-4567-890",
		},
		{
			Lead: model.Lead{
				OriginalAddress:   "200 Oak Drive",
				NormalizedAddress: "200 OAK DR",
				City:              "Madison",
				State:             "WI",
				ZipCode:           "53703",
			},
			DuplicateOfLeadID:     "lead-2",
			DuplicateOfCampaignID: "camp-gone",
			MatchType:             model.MatchTypeAddress,
			MatchedOn:             "200 OAK DR, Madison, WI 53703",
		},
	}
}

func TestBuildDuplicateLogs(t *testing.T) {
	uploaded := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{refs: map[string]model.CampaignRef{
		"camp-old": {ID: "camp-old", Name: "DM_Absentee_2024-11_V1", UploadDate: uploaded},
	}}

	entries := BuildDuplicateLogs(context.Background(), lookup, "camp-new", sampleMatches())
	require.Len(t, entries, 2)
	assert.Equal(t, 1, lookup.calls)

	resolved := entries[0]
	assert.Equal(t, "camp-new", resolved.CampaignID)
	assert.Nil(t, resolved.LeadID)
	assert.Equal(t, "123-4567-890", resolved.DuplicateParcelID)
	assert.Equal(t, "100 Main Street", resolved.DuplicateAddress)
	assert.Equal(t, "Jane Doe", resolved.DuplicateOwnerName)
	assert.Equal(t, "lead-1", resolved.OriginalLeadID)
	assert.Equal(t, "Existing", resolved.OriginalStatus)
	assert.Equal(t, model.MatchTypeParcelID, resolved.MatchType)
	assert.Equal(t, "DM_Absentee_2024-11_V1", resolved.OriginalCampaignName)
	require.NotNil(t, resolved.OriginalUploadDate)
	assert.Equal(t, uploaded, *resolved.OriginalUploadDate)

	// Campaign that no longer resolves.
	orphan := entries[1]
	assert.Equal(t, model.UnknownCampaignName, orphan.OriginalCampaignName)
	assert.Nil(t, orphan.OriginalUploadDate)
}

func TestBuildDuplicateLogsLookupFailure(t *testing.T) {
	lookup := &fakeLookup{err: eris.New("connection refused")}

	entries := BuildDuplicateLogs(context.Background(), lookup, "camp-new", sampleMatches())
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, model.UnknownCampaignName, e.OriginalCampaignName)
	}
}

func TestBuildDuplicateLogsEmpty(t *testing.T) {
	lookup := &fakeLookup{}
	assert.Nil(t, BuildDuplicateLogs(context.Background(), lookup, "camp-new", nil))
	assert.Zero(t, lookup.calls)
}
