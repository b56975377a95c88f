package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/use-agent/cadastre/extract"
	"github.com/use-agent/cadastre/flatten"
	"github.com/use-agent/cadastre/models"
)

var extractFlags struct {
	dir     string
	geocode string
	year    int
	flat    bool
	preview string
	format  string
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractFlags.dir, "dir", ".", "Directory holding <category>.html fragment files.")
	f.StringVar(&extractFlags.geocode, "geocode", "", "Geocode of the property.")
	f.IntVar(&extractFlags.year, "year", 0, "Assessment year (default from CADASTRE_DEFAULT_YEAR).")
	f.BoolVar(&extractFlags.flat, "flat", false, "Print the flattened row instead of the nested record.")
	f.StringVar(&extractFlags.preview, "preview", "", "Render one category's raw fragment instead of extracting.")
	f.StringVar(&extractFlags.format, "format", "json", "Output: json, table or markdown; for --preview: markdown, text or html.")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract --dir <fragments dir> [--geocode <geocode>] [--flat] [--preview <category>]",
	Short: "Extracts a record from fragment files saved on disk.",
	Long: "Extracts a record from fragment files saved on disk. Each category is read from\n" +
		"<dir>/<category>.html; a missing file is an empty fragment. An optional\n" +
		"<dir>/initial.json holds the search listing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if extractFlags.preview != "" {
			return previewFragment(extractFlags.dir, extractFlags.preview, extractFlags.format)
		}

		fragments, err := readFragments(extractFlags.dir)
		if err != nil {
			return err
		}
		initial, err := readListing(extractFlags.dir)
		if err != nil {
			return err
		}
		if extractFlags.geocode != "" {
			initial.Geocode = extractFlags.geocode
		}
		year := extractFlags.year
		if year == 0 {
			year = cfg.Cadastral.DefaultYear
		}

		rec, err := extract.Record(initial, year, fragments)
		if err != nil {
			return err
		}

		if !extractFlags.flat {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		row, err := flatten.Row(rec)
		if err != nil {
			return err
		}
		if extractFlags.format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(row)
		}
		return flatten.Vertical(row).Render(os.Stdout, extractFlags.format)
	},
}

func readFragments(dir string) (models.Fragments, error) {
	fragments := make(models.Fragments)
	for _, c := range slices.Concat(models.FragmentCategories, models.SupplementalCategories) {
		data, err := os.ReadFile(filepath.Join(dir, string(c)+".html"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		fragments[c] = string(data)
	}
	return fragments, nil
}

func readListing(dir string) (models.Listing, error) {
	var l models.Listing
	data, err := os.ReadFile(filepath.Join(dir, "initial.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return l, err
	}
	if err := json.Unmarshal(data, &l); err != nil {
		return l, fmt.Errorf("initial.json: %w", err)
	}
	return l, nil
}

func previewFragment(dir, name, format string) error {
	category, err := models.ParseCategory(name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(dir, string(category)+".html"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if format != "text" && format != "html" {
		format = "markdown"
	}
	out, err := extract.NewPreviewer().Render(string(data), format)
	if err != nil {
		return err
	}
	if extract.IsEmptyFragment(string(data)) {
		fmt.Fprintf(os.Stderr, "%s: no data for this parcel\n", category)
	}
	fmt.Println(out)
	return nil
}
