package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-engine/internal/model"
)

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "Manage the market registry",
}

var marketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured markets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		markets, err := st.ListMarkets(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tSTATE\tPARCEL ID TYPE\tFORMAT")
		for _, m := range markets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				m.MarketCode, m.MarketName, m.State, m.ParcelIDType, m.ParcelIDFormat)
		}
		return w.Flush()
	},
}

var marketsSeedFile string

var marketsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed or refresh markets from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		markets, err := loadMarketSeed(marketsSeedFile)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.UpsertMarkets(ctx, markets)
		if err != nil {
			return err
		}

		zap.L().Info("markets seeded",
			zap.String("file", marketsSeedFile),
			zap.Int("markets", len(markets)),
			zap.Int64("rows_affected", n))
		return nil
	},
}

// loadMarketSeed reads a YAML market list and validates required fields.
func loadMarketSeed(path string) ([]model.Market, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "markets: read seed %s", path)
	}

	var seed struct {
		Markets []model.Market `yaml:"markets"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, eris.Wrap(err, "markets: parse seed")
	}
	if len(seed.Markets) == 0 {
		return nil, eris.Errorf("markets: seed %s has no markets", path)
	}
	for _, m := range seed.Markets {
		if m.MarketCode == "" || m.State == "" {
			return nil, eris.Errorf("markets: seed entry missing market_code or state")
		}
	}
	return seed.Markets, nil
}

func init() {
	marketsSeedCmd.Flags().StringVar(&marketsSeedFile, "file", "markets.yaml", "path to market seed YAML")
	marketsCmd.AddCommand(marketsListCmd)
	marketsCmd.AddCommand(marketsSeedCmd)
	rootCmd.AddCommand(marketsCmd)
}
