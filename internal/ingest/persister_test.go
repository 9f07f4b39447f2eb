package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/model"
)

// fakeWriter rejects whole batches containing a poisoned parcel id and then
// rejects the poisoned rows individually, mimicking a constraint violation.
type fakeWriter struct {
	poisoned map[string]bool

	batchCalls  int
	singleCalls int
	saved       []model.Lead
}

func (w *fakeWriter) InsertLeads(_ context.Context, _ string, leads []model.Lead) error {
	w.batchCalls++
	for _, l := range leads {
		if w.poisoned[l.ParcelID] {
			return eris.Errorf("duplicate key value violates unique constraint")
		}
	}
	w.saved = append(w.saved, leads...)
	return nil
}

func (w *fakeWriter) InsertLead(_ context.Context, _ string, lead model.Lead) error {
	w.singleCalls++
	if w.poisoned[lead.ParcelID] {
		return eris.Errorf("duplicate key value violates unique constraint")
	}
	w.saved = append(w.saved, lead)
	return nil
}

func makeLeads(n int) []model.Lead {
	leads := make([]model.Lead, n)
	for i := range leads {
		leads[i] = model.Lead{
			OriginalAddress:   fmt.Sprintf("%d Main Street", i),
			NormalizedAddress: fmt.Sprintf("%d MAIN ST", i),
			City:              "Milwaukee",
			State:             "WI",
			ZipCode:           "53202",
			ParcelID:          fmt.Sprintf("%03d-0000-000", i),
		}
	}
	return leads
}

func TestSaveAllBatchesSucceed(t *testing.T) {
	w := &fakeWriter{}
	leads := makeLeads(250)

	var progress []SaveProgress
	saved, failed, err := NewPersister(w, 100).Save(context.Background(), "camp-1", leads,
		func(p SaveProgress) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Equal(t, 250, saved)
	assert.Empty(t, failed)
	assert.Equal(t, 3, w.batchCalls)
	assert.Zero(t, w.singleCalls)

	require.Len(t, progress, 3)
	assert.Equal(t, SaveProgress{Total: 250, Saved: 100, CurrentBatch: 1, TotalBatches: 3}, progress[0])
	assert.Equal(t, SaveProgress{Total: 250, Saved: 250, CurrentBatch: 3, TotalBatches: 3}, progress[2])
}

func TestSaveFallbackIsolatesBadRow(t *testing.T) {
	leads := makeLeads(150)
	// Poison one record in the second batch.
	w := &fakeWriter{poisoned: map[string]bool{leads[120].ParcelID: true}}

	var last SaveProgress
	saved, failed, err := NewPersister(w, 100).Save(context.Background(), "camp-1", leads,
		func(p SaveProgress) { last = p })
	require.NoError(t, err)

	assert.Equal(t, 149, saved)
	require.Len(t, failed, 1)
	assert.Equal(t, leads[120].ParcelID, failed[0].Lead.ParcelID)
	assert.Contains(t, failed[0].Reason, "unique constraint")

	// First batch in one shot, second batch retried row by row.
	assert.Equal(t, 2, w.batchCalls)
	assert.Equal(t, 50, w.singleCalls)
	assert.Len(t, w.saved, 149)

	assert.Equal(t, 150, last.Saved+last.Failed)
	assert.Equal(t, 2, last.CurrentBatch)
}

func TestSaveEveryLeadAccountedFor(t *testing.T) {
	leads := makeLeads(30)
	w := &fakeWriter{poisoned: map[string]bool{
		leads[3].ParcelID:  true,
		leads[17].ParcelID: true,
	}}

	saved, failed, err := NewPersister(w, 10).Save(context.Background(), "camp-1", leads, nil)
	require.NoError(t, err)
	assert.Equal(t, len(leads), saved+len(failed))
	assert.Len(t, failed, 2)
}

func TestSaveEmpty(t *testing.T) {
	w := &fakeWriter{}
	saved, failed, err := NewPersister(w, 100).Save(context.Background(), "camp-1", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, saved)
	assert.Empty(t, failed)
	assert.Zero(t, w.batchCalls)
}

func TestSaveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &fakeWriter{}
	_, _, err := NewPersister(w, 100).Save(ctx, "camp-1", makeLeads(10), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, w.batchCalls)
}
