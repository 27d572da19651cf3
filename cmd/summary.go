package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/eob-report/internal/report"
	"github.com/sells-group/eob-report/internal/store"
	"github.com/sells-group/eob-report/internal/summary"
)

var (
	summaryCarrier  string
	summarySnapshot string
	summaryFormat   string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize imported claims",
	Long:  "Aggregates decision outcomes, category totals, processing turnaround, and retro statistics over the imported claim extracts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		filter := store.ClaimFilter{Carrier: summaryCarrier}
		if summarySnapshot != "" {
			snap, err := time.Parse(time.DateOnly, summarySnapshot)
			if err != nil {
				return eris.Wrapf(err, "summary: parse --snapshot %q", summarySnapshot)
			}
			filter.Snapshot = &snap
		}

		claims, err := st.ListClaims(ctx, filter)
		if err != nil {
			return err
		}

		s := summary.Build(claims)
		ra := summary.AnalyzeRetro(claims)

		switch summaryFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Summary summary.ClaimsSummary `json:"summary"`
				Retro   summary.RetroAnalysis `json:"retro_analysis"`
			}{s, ra})
		case "table", "":
			return report.WriteSummaryTable(os.Stdout, s, ra)
		default:
			return eris.Errorf("summary: unsupported format %q", summaryFormat)
		}
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryCarrier, "carrier", "", "filter by carrier name")
	summaryCmd.Flags().StringVar(&summarySnapshot, "snapshot", "", "filter by snapshot date, YYYY-MM-DD")
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(summaryCmd)
}
