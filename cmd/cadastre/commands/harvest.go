package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/use-agent/cadastre/cadastral"
	"github.com/use-agent/cadastre/flatten"
	"github.com/use-agent/cadastre/harvest"
	"github.com/use-agent/cadastre/models"
	"github.com/use-agent/cadastre/store"
)

var harvestFlags struct {
	countyID     string
	countyName   string
	subdivisions []string
	year         int
	db           string
	csvPath      string
	jsonPath     string
	policy       string
	concurrency  int
}

func init() {
	f := harvestCmd.Flags()
	f.StringVar(&harvestFlags.countyID, "county-id", "", "County id to harvest.")
	f.StringVar(&harvestFlags.countyName, "county-name", "", "County name to harvest; resolved to its id.")
	f.StringSliceVar(&harvestFlags.subdivisions, "subdivision", nil, "Harvest only these subdivisions (repeatable). Default: every subdivision not yet harvested.")
	f.IntVar(&harvestFlags.year, "year", 0, "Assessment year (default from CADASTRE_DEFAULT_YEAR).")
	f.StringVar(&harvestFlags.db, "db", "", "SQLite database for records and progress (default from CADASTRE_DB).")
	f.StringVar(&harvestFlags.csvPath, "csv", "", "Write the flattened records as CSV to this file.")
	f.StringVar(&harvestFlags.jsonPath, "json", "", "Write the flattened records as JSON to this file.")
	f.StringVar(&harvestFlags.policy, "policy", "", "Error policy: skip or abort (default from CADASTRE_HARVEST_ERROR_POLICY).")
	f.IntVar(&harvestFlags.concurrency, "concurrency", 0, "Properties harvested at once (default from CADASTRE_HARVEST_CONCURRENCY).")
	harvestCmd.MarkFlagsOneRequired("county-id", "county-name")
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest (--county-id <id> | --county-name <name>) [--subdivision <name>]... [--db <path>] [--csv <path>] [--json <path>]",
	Short: "Harvests every property of a county or of selected subdivisions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := cadastral.NewClient(cfg.Cadastral)

		countyID, err := resolveCounty(ctx, client, harvestFlags.countyID, harvestFlags.countyName)
		if err != nil {
			return err
		}
		year := harvestFlags.year
		if year == 0 {
			year = cfg.Cadastral.DefaultYear
		}
		policyName := harvestFlags.policy
		if policyName == "" {
			policyName = cfg.Harvest.ErrorPolicy
		}
		policy, err := harvest.ParsePolicy(policyName)
		if err != nil {
			return err
		}
		concurrency := harvestFlags.concurrency
		if concurrency == 0 {
			concurrency = cfg.Harvest.Concurrency
		}

		opts := harvest.Options{
			Concurrency: concurrency,
			Policy:      policy,
			OnProgress: func(p harvest.Progress) {
				slog.Debug("property done", "subdivision", p.Target.Subdivision, "geocode", p.Geocode, "done", p.Done, "total", p.Total)
			},
		}
		dbPath := harvestFlags.db
		if dbPath == "" {
			dbPath = cfg.Store.Path
		}
		if dbPath != "" {
			db, err := store.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			opts.Saver = db
		}
		h := harvest.New(client, opts)

		var reports []*harvest.Report
		if len(harvestFlags.subdivisions) == 0 {
			reports, err = h.County(ctx, countyID, year)
			if err != nil {
				return err
			}
		} else {
			for _, name := range harvestFlags.subdivisions {
				report, err := h.Subdivision(ctx, harvest.Target{CountyID: countyID, Subdivision: name, Year: year})
				if err != nil {
					return err
				}
				reports = append(reports, report)
			}
		}

		printReports(os.Stdout, reports)
		return exportReports(reports, harvestFlags.csvPath, harvestFlags.jsonPath)
	},
}

// resolveCounty returns id, or looks name up in the county list.
func resolveCounty(ctx context.Context, client *cadastral.Client, id, name string) (string, error) {
	if id != "" {
		return id, nil
	}
	counties, err := client.Counties(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range counties {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name)) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("no county named %q", name)
}

func printReports(w io.Writer, reports []*harvest.Report) {
	tw := prettytable.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(prettytable.Row{"Subdivision", "Listings", "Records", "Skipped", "Failed", "Elapsed"})
	var total [4]int
	for _, r := range reports {
		tw.AppendRow(prettytable.Row{r.Target.Subdivision, r.Listings, len(r.Records), len(r.Skipped), len(r.Failed), r.Elapsed.Round(time.Millisecond)})
		total[0] += r.Listings
		total[1] += len(r.Records)
		total[2] += len(r.Skipped)
		total[3] += len(r.Failed)
	}
	tw.AppendFooter(prettytable.Row{"Total", total[0], total[1], total[2], total[3], ""})
	tw.Render()
}

func exportReports(reports []*harvest.Report, csvPath, jsonPath string) error {
	if csvPath == "" && jsonPath == "" {
		return nil
	}
	var recs []*models.PropertyRecord
	for _, r := range reports {
		recs = append(recs, r.Records...)
	}
	rows, err := flatten.Rows(recs)
	if err != nil {
		return err
	}
	table := flatten.NewTable(rows)

	if csvPath != "" {
		if err := writeFile(csvPath, table.WriteCSV); err != nil {
			return err
		}
	}
	if jsonPath != "" {
		if err := writeFile(jsonPath, table.WriteJSON); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
