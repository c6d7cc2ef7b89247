package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/metrics"
	"github.com/octobees/localpros/api/internal/rowsource"
	"github.com/octobees/localpros/api/internal/service"
)

var (
	importKind string
	importFile string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import companies, reviews or galleries from a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		kind, err := service.ParseImportKind(importKind)
		if err != nil {
			return err
		}
		format, ok := rowsource.DetectFormat(importFile, "")
		if !ok {
			return eris.Errorf("import: %s is neither .csv nor .xlsx", filepath.Base(importFile))
		}

		f, err := os.Open(importFile)
		if err != nil {
			return eris.Wrap(err, "import: open file")
		}
		defer f.Close()

		pool, err := connect(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "import: connect database")
		}
		defer pool.Close()

		importer := newImporter(cfg, pool, newGeocoder(cfg), metrics.New(nil))

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("importing "+string(kind)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionOnCompletion(func() {
				_, _ = os.Stderr.WriteString("\n")
			}),
		)
		result, err := importer.ImportFile(ctx, kind, format, f, func(row int) {
			_ = bar.Set(row)
		})
		_ = bar.Finish()
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("file", importFile),
			zap.Int("successful", result.Summary.Successful),
			zap.Int("failed", result.Summary.Failed),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	importCmd.Flags().StringVar(&importKind, "kind", "", "companies, reviews or galleries (required)")
	importCmd.Flags().StringVar(&importFile, "file", "", "path to a .csv or .xlsx file (required)")
	_ = importCmd.MarkFlagRequired("kind")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
