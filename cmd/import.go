package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/eob-report/internal/ingest"
	"github.com/sells-group/eob-report/internal/model"
	"github.com/sells-group/eob-report/internal/retro"
)

var (
	importFile   string
	importKind   string
	importSheet  string
	importRerank bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an EOB history or claims extract into the store",
	Long:  "Reads a CSV or XLSX extract and loads it into the database. History rows are upserted by (rfb_id, rank); claim rows are appended.",
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

		opts := ingest.XLSXOptions{SheetName: importSheet}
		isXLSX := strings.EqualFold(filepath.Ext(importFile), ".xlsx")

		switch importKind {
		case "history":
			rows, err := readHistory(importFile, isXLSX, opts)
			if err != nil {
				return err
			}
			if importRerank {
				rows = retro.Rank(rows)
			}
			n, err := st.UpsertEOBHistory(ctx, rows)
			if err != nil {
				return err
			}
			zap.L().Info("history import complete",
				zap.String("file", importFile),
				zap.Int("read", len(rows)),
				zap.Int64("upserted", n),
			)
		case "claims":
			claims, err := readClaims(importFile, isXLSX, opts)
			if err != nil {
				return err
			}
			n, err := st.InsertClaims(ctx, claims)
			if err != nil {
				return err
			}
			zap.L().Info("claims import complete",
				zap.String("file", importFile),
				zap.Int("read", len(claims)),
				zap.Int64("inserted", n),
			)
		default:
			return eris.Errorf("import: unsupported kind %q (want history or claims)", importKind)
		}

		return nil
	},
}

func readHistory(path string, isXLSX bool, opts ingest.XLSXOptions) ([]model.EOBHistoryRow, error) {
	if isXLSX {
		return ingest.ReadHistoryXLSX(path, opts)
	}
	return ingest.ReadHistoryCSV(path)
}

func readClaims(path string, isXLSX bool, opts ingest.XLSXOptions) ([]model.Claim, error) {
	if isXLSX {
		return ingest.ReadClaimsXLSX(path, opts)
	}
	return ingest.ReadClaimsCSV(path)
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to CSV or XLSX extract (required)")
	importCmd.Flags().StringVar(&importKind, "kind", "history", "extract kind: history or claims")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	importCmd.Flags().BoolVar(&importRerank, "rerank", false, "recompute history ranks from dates before loading")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
