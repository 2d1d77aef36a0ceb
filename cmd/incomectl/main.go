package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"incomedash/domain/table"
	"incomedash/internal/charts"
	"incomedash/internal/config"
	"incomedash/internal/dataset"
	"incomedash/internal/inference"
	"incomedash/internal/model"
	"incomedash/internal/profiling"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "incomectl",
		Short:         "Inspect income datasets and run the income model from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newPredictCmd(),
		newSchemaCmd(),
		newInspectCmd(),
		newChartCmd(),
	)
	return rootCmd
}

func defaults() *config.Config {
	cfg := config.Default()
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("DATASET_PATH"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("DATASET_ENCODING"); v != "" {
		cfg.Data.Encoding = v
	}
	return cfg
}

func newPredictCmd() *cobra.Command {
	cfg := defaults()
	var record string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict income for one record",
		Long: `Predict income for one record given as a JSON object of feature values.
Features the model expects but the record lacks are passed as missing.

Example: incomectl predict --model modelo_pipeline.json --record '{"idade": 43, "sexo": "F"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var values map[string]any
			if err := json.Unmarshal([]byte(record), &values); err != nil {
				return fmt.Errorf("invalid --record JSON: %w", err)
			}
			if values == nil {
				return fmt.Errorf("--record must be a JSON object")
			}

			m, err := model.Load(cfg.Model.Path)
			if err != nil {
				return err
			}
			p, err := inference.NewAdapter().Predict(cmd.Context(), m, values)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().StringVar(&cfg.Model.Path, "model", cfg.Model.Path, "Model artifact path")
	cmd.Flags().StringVar(&record, "record", "{}", "Input record as a JSON object")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	cfg := defaults()

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the feature names the model expects, in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.Load(cfg.Model.Path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range m.FeatureNames() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Model.Path, "model", cfg.Model.Path, "Model artifact path")
	return cmd
}

func newInspectCmd() *cobra.Command {
	cfg := defaults()
	var sheet string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the columns, kinds and numeric profile of a dataset",
		Long: `Load a dataset the way the dashboard does and describe it.

SOURCE is a .csv, .tsv or .xlsx file, or a postgres:// or sqlite:// URL
with an optional ?table= parameter.

Example: incomectl inspect --dataset ./input/previsao_de_renda.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadDataset(cmd.Context(), cfg, sheet)
			if err != nil {
				return err
			}
			printInspection(cmd.OutOrStdout(), t)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Data.Path, "dataset", cfg.Data.Path, "Dataset source")
	cmd.Flags().StringVar(&cfg.Data.Encoding, "encoding", cfg.Data.Encoding, "Text encoding of delimited files (utf-8, latin1)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet of an .xlsx file (default: first sheet)")
	return cmd
}

func newChartCmd() *cobra.Command {
	cfg := defaults()

	cmd := &cobra.Command{
		Use:   "chart NAME",
		Short: "Print one dashboard chart as JSON",
		Long: `Build one dashboard chart from a dataset and print its JSON spec.

Use "incomectl chart list" to see the charts the dataset supports.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadDataset(cmd.Context(), cfg, "")
			if err != nil {
				return err
			}
			svc, err := charts.NewService(1, func(context.Context) (*table.Table, error) { return t, nil })
			if err != nil {
				return err
			}

			if args[0] == "list" {
				names, err := svc.Names(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			chart, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), chart)
		},
	}

	cmd.Flags().StringVar(&cfg.Data.Path, "dataset", cfg.Data.Path, "Dataset source")
	cmd.Flags().StringVar(&cfg.Data.Encoding, "encoding", cfg.Data.Encoding, "Text encoding of delimited files (utf-8, latin1)")
	return cmd
}

func loadDataset(ctx context.Context, cfg *config.Config, sheet string) (*table.Table, error) {
	loader := dataset.NewLoader(dataset.Options{Encoding: cfg.Data.Encoding, Sheet: sheet})
	return loader.Load(ctx, cfg.Data.Path)
}

func printInspection(out io.Writer, t *table.Table) {
	fmt.Fprintf(out, "%d rows, %d columns\n\n", t.Len(), len(t.Columns()))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tKIND\tMISSING")
	for _, name := range t.Columns() {
		missing := 0
		for _, v := range t.Column(name) {
			if v.IsMissing() {
				missing++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", name, t.Kind(name), missing)
	}
	w.Flush()

	profiles := profiling.NewDataProfiler().ProfileDataset(t)
	if len(profiles) == 0 {
		return
	}
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tMIN\tQ1\tMEDIAN\tMEAN\tQ3\tMAX")
	for _, name := range names {
		s := profiles[name]
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n", name, s.Min, s.Q1, s.Median, s.Mean, s.Q3, s.Max)
	}
	w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
