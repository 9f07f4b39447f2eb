package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-engine/internal/fetcher"
	"github.com/sells-group/lead-engine/internal/ingest"
	"github.com/sells-group/lead-engine/internal/mapping"
	"github.com/sells-group/lead-engine/internal/model"
)

var (
	importCampaigns   []string
	importMarket      string
	importType        string
	importVersion     string
	importProvider    string
	importUploadedBy  string
	importMapping     string
	importReportsDir  string
	importConcurrency int
	importDryRun      bool
)

var importCmd = &cobra.Command{
	Use:   "import <file> [file...]",
	Short: "Import lead files with duplicate detection",
	Long: `Reads CSV or XLSX lead files, maps columns via a template, classifies every
record against committed leads, and persists the new ones under a fresh campaign.

One campaign per file: pass --campaign once per file, in file order.

Examples:
  # Single file
  lead-engine import leads.csv --market MKE --mapping propstream.yaml --campaign DM_Absentee_2024-11_V1

  # Check only, nothing written
  lead-engine import leads.csv --market MKE --mapping propstream.yaml --campaign DM_Absentee_2024-11_V1 --dry-run

  # Two files, two campaigns
  lead-engine import a.csv b.xlsx --market MKE --mapping propstream.yaml \
    --campaign DM_Absentee_2024-11_V1 --campaign DM_Vacant_2024-11_V1`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, files []string) error {
		ctx := cmd.Context()

		if len(importCampaigns) != len(files) {
			return eris.Errorf("import: got %d files but %d --campaign flags", len(files), len(importCampaigns))
		}
		for _, name := range importCampaigns {
			if !model.ValidCampaignName(name) {
				return eris.Errorf("import: invalid campaign name %q, want PREFIX_Type_YYYY-MM_Vn", name)
			}
		}

		tpl, err := mapping.LoadTemplate(importMapping)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		market, err := st.GetMarketByCode(ctx, importMarket)
		if err != nil {
			return err
		}
		if market == nil {
			return eris.Errorf("import: unknown market %q (seed with 'lead-engine markets seed')", importMarket)
		}

		importer := ingest.NewImporter(st, cfg.Import.ChunkSize, cfg.Import.BatchSize)

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(importConcurrency)

		var succeeded, failed atomic.Int64
		for i, file := range files {
			campaignName := importCampaigns[i]
			g.Go(func() error {
				if err := importFile(gCtx, importer, tpl, *market, file, campaignName); err != nil {
					failed.Add(1)
					zap.L().Error("import: file failed",
						zap.String("file", file),
						zap.String("campaign", campaignName),
						zap.Error(err))
					return nil // don't abort the batch on individual failure
				}
				succeeded.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		zap.L().Info("import: batch complete",
			zap.Int("files", len(files)),
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()))

		if failed.Load() > 0 {
			return eris.Errorf("import: %d of %d files failed", failed.Load(), len(files))
		}
		return nil
	},
}

// importFile runs one file end to end: parse, map, classify, commit, report.
func importFile(ctx context.Context, importer *ingest.Importer, tpl *mapping.Template, market model.Market, file, campaignName string) error {
	maxBytes := int64(fetcher.MaxFileSizeBytes)
	if cfg.Import.MaxFileSizeMB > 0 {
		maxBytes = cfg.Import.MaxFileSizeMB << 20
	}
	sizeKB, err := fileSizeKB(file, maxBytes)
	if err != nil {
		return err
	}

	header, rows, err := fetcher.ReadTable(file)
	if err != nil {
		return err
	}
	zap.L().Info("import: parsed file",
		zap.String("file", file),
		zap.Int("rows", len(rows)))

	mapper, err := mapping.NewMapper(tpl, header, market)
	if err != nil {
		return err
	}
	leads := mapper.ApplyAll(rows)

	result, err := importer.Run(ctx, ingest.ImportRequest{
		Leads:           leads,
		CampaignName:    campaignName,
		CampaignType:    importType,
		CampaignVersion: importVersion,
		DataProvider:    importProvider,
		UploadedBy:      importUploadedBy,
		Market:          market,
		FileName:        filepath.Base(file),
		FileSizeKB:      sizeKB,
		DryRun:          importDryRun,
	}, func(p ingest.SaveProgress) {
		zap.L().Debug("import: saving leads",
			zap.String("campaign", campaignName),
			zap.Int("saved", p.Saved),
			zap.Int("failed", p.Failed),
			zap.Int("batch", p.CurrentBatch),
			zap.Int("batches", p.TotalBatches))
	})
	if err != nil {
		return err
	}

	if importDryRun {
		return printSummaryJSON(result)
	}

	reportsDir := importReportsDir
	if reportsDir == "" {
		reportsDir = filepath.Dir(file)
	}
	paths, err := ingest.WriteReports(reportsDir, campaignName, result)
	if err != nil {
		return err
	}
	zap.L().Info("import: reports written", zap.Strings("paths", paths))
	return nil
}

func init() {
	importCmd.Flags().StringSliceVar(&importCampaigns, "campaign", nil, "campaign name, once per file (required)")
	importCmd.Flags().StringVar(&importMarket, "market", "", "market code, e.g. MKE (required)")
	importCmd.Flags().StringVar(&importType, "type", "", "campaign type, e.g. Absentee")
	importCmd.Flags().StringVar(&importVersion, "version", "", "campaign version, e.g. V1")
	importCmd.Flags().StringVar(&importProvider, "provider", "", "data provider name")
	importCmd.Flags().StringVar(&importUploadedBy, "uploaded-by", "", "uploader identity recorded on the campaign")
	importCmd.Flags().StringVar(&importMapping, "mapping", "", "path to column mapping template YAML (required)")
	importCmd.Flags().StringVar(&importReportsDir, "reports-dir", "", "directory for partition reports (default: next to the input file)")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 2, "max files to process concurrently")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "classify only, write nothing")
	_ = importCmd.MarkFlagRequired("campaign")
	_ = importCmd.MarkFlagRequired("market")
	_ = importCmd.MarkFlagRequired("mapping")
	rootCmd.AddCommand(importCmd)
}

// printSummaryJSON prints a dry-run result as indented JSON.
func printSummaryJSON(result *ingest.ImportResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// fileSizeKB stats a file and enforces the upload size cap.
func fileSizeKB(path string, maxBytes int64) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, eris.Wrapf(err, "import: stat %s", path)
	}
	if info.Size() > maxBytes {
		return 0, eris.Errorf("import: %s is %d MB, exceeds the %d MB limit",
			filepath.Base(path), info.Size()>>20, maxBytes>>20)
	}
	return int(info.Size() / 1024), nil
}
