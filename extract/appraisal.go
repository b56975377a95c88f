package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/cadastre/models"
)

// appraisalColumns is the fixed column layout of an appraisal history row:
// tax year, land value, building value, total value, method.
const appraisalColumns = 5

// Appraisal extracts the appraisal history, one entry per data row in
// source order (most recent year first). Each entry except the last gets
// YoY deltas against the row that follows it.
func Appraisal(fragment string) ([]models.AppraisalEntry, error) {
	if IsEmptyFragment(fragment) {
		return []models.AppraisalEntry{}, nil
	}
	doc, err := parse(models.CategoryAppraisal, fragment)
	if err != nil {
		return nil, err
	}

	rows := doc.FindMatcher(appraisalRowSel)
	if rows.Length() == 0 {
		rows = doc.FindMatcher(tableSel).First().FindMatcher(rowSel)
	}
	if rows.Length() == 0 {
		return nil, &models.ParseError{Category: models.CategoryAppraisal, Msg: "appraisal table not found"}
	}

	entries := make([]models.AppraisalEntry, 0, rows.Length()-1)
	for i := 1; i < rows.Length(); i++ {
		entry, err := appraisalRow(rows.Eq(i))
		if err != nil {
			return nil, &models.ParseError{
				Category: models.CategoryAppraisal,
				Msg:      fmt.Sprintf("row %d", i),
				Err:      err,
			}
		}
		entries = append(entries, entry)
	}

	addYoY(entries)
	return entries, nil
}

func appraisalRow(row *goquery.Selection) (models.AppraisalEntry, error) {
	cells := row.FindMatcher(cellSel)
	if cells.Length() < appraisalColumns {
		return models.AppraisalEntry{}, fmt.Errorf("%d columns, want %d", cells.Length(), appraisalColumns)
	}
	text := func(i int) string { return strings.TrimSpace(cells.Eq(i).Text()) }

	var (
		entry models.AppraisalEntry
		err   error
	)
	if entry.TaxYear, err = parseInt("Tax Year", text(0)); err != nil {
		return entry, err
	}
	if entry.LandValue, err = parseFloat("Land Value", text(1)); err != nil {
		return entry, err
	}
	if entry.BuildingValue, err = parseFloat("Building Value", text(2)); err != nil {
		return entry, err
	}
	if entry.TotalValue, err = parseFloat("Total Value", text(3)); err != nil {
		return entry, err
	}
	entry.Method = text(4)
	return entry, nil
}

func parseInt(field, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &models.ConversionError{Field: field, Value: s, Err: err}
	}
	return v, nil
}

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &models.ConversionError{Field: field, Value: s, Err: err}
	}
	return v, nil
}

// addYoY sets the deltas of entries[i] against entries[i+1]. The last entry
// has no older reference and is left without deltas.
func addYoY(entries []models.AppraisalEntry) {
	if len(entries) < 2 {
		return
	}
	for i := 0; i < len(entries)-1; i++ {
		cur, prev := &entries[i], entries[i+1]
		cur.LandValueYoY = ptr(cur.LandValue - prev.LandValue)
		cur.BuildingValueYoY = ptr(cur.BuildingValue - prev.BuildingValue)
		cur.TotalValueYoY = ptr(cur.TotalValue - prev.TotalValue)
	}
}

func ptr(f float64) *float64 { return &f }
