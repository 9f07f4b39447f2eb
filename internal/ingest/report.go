package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/internal/dedupe"
	"github.com/sells-group/lead-engine/internal/model"
)

// WriteNewLeadsReport writes the valid-new partition as CSV.
func WriteNewLeadsReport(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"original_address", "city", "state", "zip_code", "parcel_id",
		"owner_full_name", "mailing_address", "phone", "email", "market",
	}); err != nil {
		return eris.Wrap(err, "ingest: write new leads header")
	}
	for _, l := range leads {
		if err := cw.Write([]string{
			l.OriginalAddress, l.City, l.State, l.ZipCode, l.ParcelID,
			l.OwnerFullName, l.MailingAddress, l.Phone, l.Email, l.Market,
		}); err != nil {
			return eris.Wrap(err, "ingest: write new lead row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "ingest: flush new leads report")
}

// WriteDuplicatesReport writes the duplicate partition as CSV, including the
// match rule and what it matched on.
func WriteDuplicatesReport(w io.Writer, matches []model.DuplicateMatch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"original_address", "city", "state", "zip_code", "parcel_id",
		"match_type", "matched_on", "duplicate_of_lead_id", "duplicate_of_campaign_id",
	}); err != nil {
		return eris.Wrap(err, "ingest: write duplicates header")
	}
	for _, m := range matches {
		if err := cw.Write([]string{
			m.Lead.OriginalAddress, m.Lead.City, m.Lead.State, m.Lead.ZipCode, m.Lead.ParcelID,
			m.MatchType.Description(), m.MatchedOn, m.DuplicateOfLeadID, m.DuplicateOfCampaignID,
		}); err != nil {
			return eris.Wrap(err, "ingest: write duplicate row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "ingest: flush duplicates report")
}

// WriteInvalidReport writes the invalid partition as CSV with the rejection
// reason per row.
func WriteInvalidReport(w io.Writer, invalid []dedupe.InvalidLead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"original_address", "city", "state", "zip_code", "parcel_id", "reason",
	}); err != nil {
		return eris.Wrap(err, "ingest: write invalid header")
	}
	for _, il := range invalid {
		if err := cw.Write([]string{
			il.Lead.OriginalAddress, il.Lead.City, il.Lead.State, il.Lead.ZipCode, il.Lead.ParcelID, il.Reason,
		}); err != nil {
			return eris.Wrap(err, "ingest: write invalid row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "ingest: flush invalid report")
}

// WriteFailedReport writes leads rejected by the database as CSV with the
// insert error per row.
func WriteFailedReport(w io.Writer, failed []FailedLead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"original_address", "city", "state", "zip_code", "parcel_id", "error_reason",
	}); err != nil {
		return eris.Wrap(err, "ingest: write failed header")
	}
	for _, fl := range failed {
		if err := cw.Write([]string{
			fl.Lead.OriginalAddress, fl.Lead.City, fl.Lead.State, fl.Lead.ZipCode, fl.Lead.ParcelID, fl.Reason,
		}); err != nil {
			return eris.Wrap(err, "ingest: write failed row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "ingest: flush failed report")
}

// WriteReports writes every non-empty partition of a result to dir, one CSV
// per partition, named after the campaign. Returns the paths written.
func WriteReports(dir, campaignName string, result *ImportResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "ingest: create report dir %s", dir)
	}

	var paths []string
	write := func(suffix string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", campaignName, suffix))
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "ingest: create report %s", path)
		}
		defer f.Close()
		if err := fn(f); err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	}

	if len(result.Summary.ValidNew) > 0 {
		if err := write("new_leads", func(w io.Writer) error {
			return WriteNewLeadsReport(w, result.Summary.ValidNew)
		}); err != nil {
			return paths, err
		}
	}
	if len(result.Summary.Duplicates) > 0 {
		if err := write("duplicates", func(w io.Writer) error {
			return WriteDuplicatesReport(w, result.Summary.Duplicates)
		}); err != nil {
			return paths, err
		}
	}
	if len(result.Summary.Invalid) > 0 {
		if err := write("invalid", func(w io.Writer) error {
			return WriteInvalidReport(w, result.Summary.Invalid)
		}); err != nil {
			return paths, err
		}
	}
	if len(result.Failed) > 0 {
		if err := write("failed", func(w io.Writer) error {
			return WriteFailedReport(w, result.Failed)
		}); err != nil {
			return paths, err
		}
	}
	return paths, nil
}
