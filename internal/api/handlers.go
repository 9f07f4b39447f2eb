package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/dedupe"
	"github.com/sells-group/lead-engine/internal/ingest"
	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type checkRequest struct {
	Leads []model.Lead `json:"leads"`
	State string       `json:"state"`
}

// handleCheckDuplicates streams the duplicate check as server-sent events:
// progress frames per chunk, then one complete or error frame.
func (s *Server) handleCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.State == "" {
		writeError(w, http.StatusBadRequest, "state is required")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	for ev := range s.importer.Checker().Run(r.Context(), req.Leads, req.State) {
		switch e := ev.(type) {
		case dedupe.ProgressEvent:
			sse.Send(map[string]any{
				"type":          "progress",
				"current":       e.CurrentChunk,
				"total":         e.TotalChunks,
				"processed":     e.Processed,
				"total_records": e.TotalRecords,
				"valid_new":     e.ValidNew,
				"duplicates":    e.Duplicates,
				"invalid":       e.Invalid,
			})
		case dedupe.CompleteEvent:
			sse.Send(map[string]any{
				"type":    "complete",
				"summary": e.Summary,
			})
		case dedupe.ErrorEvent:
			sse.Send(map[string]any{
				"type":    "error",
				"message": e.Err.Error(),
			})
		}
	}
}

type importRequest struct {
	Leads           []model.Lead `json:"leads"`
	MarketCode      string       `json:"market_code"`
	CampaignName    string       `json:"campaign_name"`
	CampaignType    string       `json:"campaign_type"`
	CampaignVersion string       `json:"campaign_version"`
	DataProvider    string       `json:"data_provider"`
	UploadedBy      string       `json:"uploaded_by"`
	FileName        string       `json:"file_name"`
	FileSizeKB      int          `json:"file_size_kb"`
	DryRun          bool         `json:"dry_run"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Leads) == 0 {
		writeError(w, http.StatusBadRequest, "leads are required")
		return
	}

	market, err := s.store.GetMarketByCode(r.Context(), req.MarketCode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "market lookup failed")
		return
	}
	if market == nil {
		writeError(w, http.StatusBadRequest, "unknown market: "+req.MarketCode)
		return
	}

	result, err := s.importer.Run(r.Context(), ingest.ImportRequest{
		Leads:           req.Leads,
		CampaignName:    req.CampaignName,
		CampaignType:    req.CampaignType,
		CampaignVersion: req.CampaignVersion,
		DataProvider:    req.DataProvider,
		UploadedBy:      req.UploadedBy,
		Market:          *market,
		FileName:        req.FileName,
		FileSizeKB:      req.FileSizeKB,
		DryRun:          req.DryRun,
	}, nil)
	if err != nil {
		if result == nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Partial failure: the campaign exists but is marked failed.
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	status := http.StatusCreated
	if req.DryRun {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.CampaignFilter{
		Market: q.Get("market"),
		State:  q.Get("state"),
		Status: model.CampaignStatus(q.Get("status")),
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := parsePositiveInt(limit); err == nil {
			filter.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := parsePositiveInt(offset); err == nil {
			filter.Offset = n
		}
	}

	campaigns, err := s.store.ListCampaigns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list campaigns failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list campaigns failed")
		return
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		zap.L().Error("get campaign failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get campaign failed")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.store.ListMarkets(r.Context())
	if err != nil {
		zap.L().Error("list markets failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list markets failed")
		return
	}
	if markets == nil {
		markets = []model.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("not a positive integer: %s", s)
	}
	return n, nil
}
