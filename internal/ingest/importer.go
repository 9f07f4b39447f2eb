package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/dedupe"
	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/store"
)

// ImportRequest describes one file's worth of mapped leads plus the campaign
// they belong to.
type ImportRequest struct {
	Leads []model.Lead

	CampaignName    string
	CampaignType    string
	CampaignVersion string
	DataProvider    string
	UploadedBy      string

	Market model.Market

	FileName   string
	FileSizeKB int

	// DryRun stops after the duplicate check; nothing is written.
	DryRun bool
}

// ImportResult is the outcome of one import run.
type ImportResult struct {
	Campaign *model.Campaign `json:"campaign,omitempty"`
	Summary  *dedupe.Summary `json:"summary"`
	Saved    int             `json:"saved"`
	Failed   []FailedLead    `json:"failed,omitempty"`
	Logged   int             `json:"duplicates_logged"`
}

// Importer runs the full ingestion commit: duplicate check, campaign
// creation, lead persistence, audit logging, and campaign finalization.
type Importer struct {
	store     store.Store
	checker   *dedupe.Checker
	persister *Persister
}

// NewImporter wires an Importer onto a store. chunkSize and batchSize fall
// back to package defaults when non-positive.
func NewImporter(st store.Store, chunkSize, batchSize int) *Importer {
	return &Importer{
		store:     st,
		checker:   dedupe.NewChecker(st, chunkSize),
		persister: NewPersister(st, batchSize),
	}
}

// Checker exposes the underlying duplicate checker for callers that stream
// check results without committing.
func (im *Importer) Checker() *dedupe.Checker {
	return im.checker
}

// Run executes an import end to end. A campaign that fails mid-run is left
// behind with status failed; the duplicate check itself writes nothing.
func (im *Importer) Run(ctx context.Context, req ImportRequest, onProgress ProgressFunc) (*ImportResult, error) {
	if !model.ValidCampaignName(req.CampaignName) {
		return nil, eris.Errorf("ingest: invalid campaign name %q, want PREFIX_Type_YYYY-MM_Vn", req.CampaignName)
	}

	start := time.Now()

	summary, err := im.checker.Check(ctx, req.Leads, req.Market.State)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: duplicate check")
	}

	result := &ImportResult{Summary: summary}
	if req.DryRun {
		return result, nil
	}

	campaign, err := im.store.CreateCampaign(ctx, model.Campaign{
		Name:             req.CampaignName,
		Type:             req.CampaignType,
		Version:          req.CampaignVersion,
		DataProvider:     req.DataProvider,
		State:            req.Market.State,
		Market:           req.Market.MarketCode,
		TotalRecords:     summary.TotalRecords,
		DuplicatesFound:  len(summary.Duplicates),
		InvalidCount:     len(summary.Invalid),
		DuplicateRate:    summary.DuplicateRate(),
		SkipTraceNeeded:  len(summary.ValidNew),
		SkipTraceSavings: summary.SkipTraceSavings(),
		FileName:         req.FileName,
		FileSizeKB:       req.FileSizeKB,
		UploadedBy:       req.UploadedBy,
	})
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create campaign")
	}
	result.Campaign = campaign

	saved, failed, err := im.persister.Save(ctx, campaign.ID, summary.ValidNew, onProgress)
	result.Saved = saved
	result.Failed = failed
	if err != nil {
		im.markFailed(campaign.ID)
		return result, eris.Wrap(err, "ingest: persist leads")
	}

	// Audit log is best effort: a logging failure must not undo a committed
	// import.
	if entries := BuildDuplicateLogs(ctx, im.store, campaign.ID, summary.Duplicates); len(entries) > 0 {
		if err := im.store.InsertDuplicateLogs(ctx, entries); err != nil {
			zap.L().Warn("duplicate audit log write failed",
				zap.String("campaign_id", campaign.ID),
				zap.Int("entries", len(entries)),
				zap.Error(err))
		} else {
			result.Logged = len(entries)
		}
	}

	secs := int(time.Since(start).Round(time.Second) / time.Second)
	if err := im.store.UpdateCampaign(ctx, campaign.ID, model.CampaignPatch{
		NewLeadsCount:         &saved,
		ProcessingTimeSeconds: &secs,
	}); err != nil {
		im.markFailed(campaign.ID)
		return result, eris.Wrap(err, "ingest: finalize campaign")
	}
	campaign.NewLeadsCount = saved
	campaign.ProcessingTimeSeconds = secs

	zap.L().Info("import complete",
		zap.String("campaign_id", campaign.ID),
		zap.String("campaign", campaign.Name),
		zap.Int("total", summary.TotalRecords),
		zap.Int("saved", saved),
		zap.Int("failed", len(failed)),
		zap.Int("duplicates", len(summary.Duplicates)),
		zap.Int("invalid", len(summary.Invalid)),
		zap.Int("seconds", secs))

	return result, nil
}

// markFailed flags a campaign after a mid-run error. Uses a fresh context so
// the flag lands even when the run's context is already canceled.
func (im *Importer) markFailed(campaignID string) {
	status := model.CampaignStatusFailed
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := im.store.UpdateCampaign(ctx, campaignID, model.CampaignPatch{Status: &status}); err != nil {
		zap.L().Error("failed to mark campaign as failed",
			zap.String("campaign_id", campaignID),
			zap.Error(err))
	}
}
