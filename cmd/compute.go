package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/eob-report/internal/ingest"
	"github.com/sells-group/eob-report/internal/model"
	"github.com/sells-group/eob-report/internal/report"
	"github.com/sells-group/eob-report/internal/retro"
	"github.com/sells-group/eob-report/internal/store"
)

var (
	computeStart   string
	computeEnd     string
	computeFile    string
	computeSave    bool
	computeFormat  string
	computeOutput  string
	computeWorkers int
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute retroactive benefit months for a reporting window",
	Long:  "Derives retro months per request-for-benefit from EOB history, either from the store or directly from an extract file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		window, err := parseWindow(computeStart, computeEnd)
		if err != nil {
			return err
		}

		workers := computeWorkers
		if workers == 0 {
			workers = cfg.Report.Workers
		}
		format := computeFormat
		if format == "" {
			format = cfg.Report.Format
		}

		rows, st, err := loadHistory(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		started := time.Now()
		var months map[string]int
		if workers > 1 {
			months, err = retro.ComputeParallel(ctx, rows, window, workers)
		} else {
			months, err = retro.Compute(rows, window)
		}
		if err != nil {
			return err
		}
		results := retro.Results(months)

		zap.L().Info("retro computation complete",
			zap.String("window", window.String()),
			zap.Int("history_rows", len(rows)),
			zap.Int("entities", len(results)),
			zap.Duration("elapsed", time.Since(started)),
		)

		if computeSave {
			if st == nil {
				return eris.New("compute: --save requires the store (omit --file)")
			}
			run, err := st.CreateRun(ctx, window.Start, window.End)
			if err != nil {
				return err
			}
			if err := st.SaveResults(ctx, run.ID, results); err != nil {
				failErr := st.FailRun(ctx, run.ID)
				if failErr != nil {
					zap.L().Warn("could not mark run failed", zap.String("run_id", run.ID), zap.Error(failErr))
				}
				return err
			}
			if err := st.CompleteRun(ctx, run.ID, len(results)); err != nil {
				return err
			}
			zap.L().Info("run saved", zap.String("run_id", run.ID))
		}

		if err := outputResults(results, format, computeOutput); err != nil {
			return err
		}
		printRetroSummary(results)
		return nil
	},
}

// loadHistory reads EOB history from --file when given, otherwise from
// the store. The returned store is nil in the file case.
func loadHistory(ctx context.Context) ([]model.EOBHistoryRow, store.Store, error) {
	if computeFile != "" {
		opts := ingest.XLSXOptions{}
		isXLSX := strings.EqualFold(filepath.Ext(computeFile), ".xlsx")
		rows, err := readHistory(computeFile, isXLSX, opts)
		return rows, nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}
	rows, err := st.ListEOBHistory(ctx)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}
	return rows, st, nil
}

// parseWindow builds the inclusive reporting window from flag values.
func parseWindow(start, end string) (retro.Window, error) {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return retro.Window{}, eris.Wrapf(err, "compute: parse --start %q", start)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return retro.Window{}, eris.Wrapf(err, "compute: parse --end %q", end)
	}
	return retro.NewWindow(s, e)
}

func outputResults(results []model.RetroResult, format, outputPath string) error {
	switch format {
	case "xlsx":
		if outputPath == "" {
			return eris.New("compute: xlsx format requires --output")
		}
		return report.WriteResultsXLSX(outputPath, results)
	case "csv", "table":
	default:
		return eris.Errorf("compute: unsupported format %q", format)
	}

	w := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "compute: create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	if format == "csv" {
		return report.WriteResultsCSV(w, results)
	}
	return report.WriteResultsTable(w, results)
}

func printRetroSummary(results []model.RetroResult) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	var retroCount, sum int
	min, max := results[0].RetroMonths, results[0].RetroMonths
	for _, r := range results {
		sum += r.RetroMonths
		if r.RetroMonths > 0 {
			retroCount++
		}
		if r.RetroMonths > max {
			max = r.RetroMonths
		}
		if r.RetroMonths < min {
			min = r.RetroMonths
		}
	}
	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Entities:      %d\n", len(results))
	fmt.Printf("With retro:    %d (%.1f%%)\n", retroCount, float64(retroCount)/float64(len(results))*100)
	fmt.Printf("Months range:  %d to %d\n", min, max)
	fmt.Printf("Average:       %.2f\n", float64(sum)/float64(len(results)))
}

func init() {
	computeCmd.Flags().StringVar(&computeStart, "start", "", "reporting window start date, YYYY-MM-DD (required)")
	computeCmd.Flags().StringVar(&computeEnd, "end", "", "reporting window end date, YYYY-MM-DD (required)")
	computeCmd.Flags().StringVar(&computeFile, "file", "", "compute directly from a CSV/XLSX extract instead of the store")
	computeCmd.Flags().BoolVar(&computeSave, "save", false, "persist results as a report run")
	computeCmd.Flags().StringVar(&computeFormat, "format", "", "output format: table, csv, or xlsx (default from config)")
	computeCmd.Flags().StringVar(&computeOutput, "output", "", "write output to file instead of stdout")
	computeCmd.Flags().IntVar(&computeWorkers, "workers", 0, "parallel workers (default from config)")
	_ = computeCmd.MarkFlagRequired("start")
	_ = computeCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(computeCmd)
}
