package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/store"
)

var (
	campaignsMarket string
	campaignsState  string
	campaignsStatus string
	campaignsLimit  int
	campaignsJSON   bool
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List import history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		campaigns, err := st.ListCampaigns(ctx, store.CampaignFilter{
			Market: campaignsMarket,
			State:  campaignsState,
			Status: model.CampaignStatus(campaignsStatus),
			Limit:  campaignsLimit,
		})
		if err != nil {
			return err
		}

		if campaignsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(campaigns)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "UPLOADED\tCAMPAIGN\tMARKET\tSTATUS\tTOTAL\tNEW\tDUPES\tINVALID\tDUP RATE\tSAVINGS")
		for _, c := range campaigns {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%.1f%%\t$%.2f\n",
				c.UploadDate.Format("2006-01-02"), c.Name, c.Market, c.Status,
				c.TotalRecords, c.NewLeadsCount, c.DuplicatesFound, c.InvalidCount,
				c.DuplicateRate, c.SkipTraceSavings)
		}
		return w.Flush()
	},
}

func init() {
	campaignsCmd.Flags().StringVar(&campaignsMarket, "market", "", "filter by market code")
	campaignsCmd.Flags().StringVar(&campaignsState, "state", "", "filter by state")
	campaignsCmd.Flags().StringVar(&campaignsStatus, "status", "", "filter by status (active|failed)")
	campaignsCmd.Flags().IntVar(&campaignsLimit, "limit", 50, "max campaigns to list")
	campaignsCmd.Flags().BoolVar(&campaignsJSON, "json", false, "output JSON instead of a table")
	rootCmd.AddCommand(campaignsCmd)
}
