package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regioniq/catchment/internal/ingest"
	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
	"github.com/regioniq/catchment/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load ONS metric files into the local SQLite snapshot",
}

var (
	ingestLevel     string
	ingestCatalogue string
	ingestMetric    string
	ingestSheet     string
	ingestSkipRows  int
)

// initIngester opens the SQLite store and builds an Ingester over it.
// Callers must Close the returned store.
func initIngester(cmd *cobra.Command) (*ingest.Ingester, *store.SQLiteStore, model.Level, error) {
	if err := cfg.Validate("ingest"); err != nil {
		return nil, nil, "", err
	}

	level, err := model.ParseLevel(ingestLevel)
	if err != nil {
		return nil, nil, "", err
	}

	catalogue := metrics.DefaultCatalogue()
	if ingestCatalogue != "" {
		catalogue, err = metrics.LoadCatalogue(ingestCatalogue)
		if err != nil {
			return nil, nil, "", err
		}
	}

	st, err := store.NewSQLite(cfg.Store.SQLitePath)
	if err != nil {
		return nil, nil, "", err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		_ = st.Close()
		return nil, nil, "", eris.Wrap(err, "migrate store")
	}

	return ingest.NewIngester(st, catalogue), st, level, nil
}

var ingestCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Ingest a long-format CSV (region_code, metric, period, value, ...)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ing, st, level, err := initIngester(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close()

		report, err := ing.IngestCSV(cmd.Context(), f, level)
		if err != nil {
			return err
		}

		zap.L().Info("csv ingested",
			zap.String("file", args[0]),
			zap.Int("rows", report.Rows),
			zap.Int("inserted", report.Inserted),
			zap.Int("skipped", report.Skipped),
		)
		return nil
	},
}

var ingestXLSXCmd = &cobra.Command{
	Use:   "xlsx <file>",
	Short: "Ingest a wide-format ONS workbook (one metric, year columns)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestMetric == "" {
			return eris.New("--metric is required for xlsx ingestion")
		}

		ing, st, level, err := initIngester(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := ing.IngestXLSX(cmd.Context(), args[0], ingestMetric, level, ingest.XLSXOptions{
			SheetName: ingestSheet,
			SkipRows:  ingestSkipRows,
		})
		if err != nil {
			return err
		}

		zap.L().Info("workbook ingested",
			zap.String("file", args[0]),
			zap.String("metric", ingestMetric),
			zap.Int("rows", report.Rows),
			zap.Int("inserted", report.Inserted),
			zap.Int("skipped", report.Skipped),
		)
		return nil
	},
}

func init() {
	ingestCmd.PersistentFlags().StringVar(&ingestLevel, "level", "LAD", "granularity level of the region codes")
	ingestCmd.PersistentFlags().StringVar(&ingestCatalogue, "catalogue", "", "metric catalogue YAML overriding the built-in one")
	ingestXLSXCmd.Flags().StringVar(&ingestMetric, "metric", "", "metric ID the workbook holds (population, emp_total, gdhi_total)")
	ingestXLSXCmd.Flags().StringVar(&ingestSheet, "sheet", "", "worksheet name (default: first sheet)")
	ingestXLSXCmd.Flags().IntVar(&ingestSkipRows, "skip-rows", 0, "title rows above the header")
	ingestCmd.AddCommand(ingestCSVCmd)
	ingestCmd.AddCommand(ingestXLSXCmd)
	rootCmd.AddCommand(ingestCmd)
}
