// Package flatten reshapes nested property records into single tabular
// rows: category-suffixed columns, the first accessory building only, and
// the appraisal history pivoted into year-over-year delta columns.
package flatten

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/use-agent/cadastre/models"
)

// MaxAppraisalYears is how many of the most recent tax years feed the
// YoY columns of a flat row.
const MaxAppraisalYears = 3

// ErrNilRecord is returned when Row is handed no record.
var ErrNilRecord = errors.New("flatten: nil record")

// Column names a flat-row column: the source label qualified by its category.
func Column(label string, c models.Category) string {
	return label + "_" + string(c)
}

// YoYColumn names the delta column of field between two tax years, e.g.
// "YOY Total Value (2022-2023)".
func YoYColumn(field string, olderYear, newerYear int) string {
	return fmt.Sprintf("YOY %s (%d-%d)", field, olderYear, newerYear)
}

// Row flattens rec into one row. Empty categories contribute no columns.
// Only the first other_building entry is kept; the appraisal history
// contributes the most recent Tax Year and Method plus YoY deltas between
// adjacent years among the MaxAppraisalYears most recent ones.
func Row(rec *models.PropertyRecord) (*models.FlatRow, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}

	row := models.NewFlatRow()
	addMapping(row, models.CategoryInitial, rec.Initial)
	addMapping(row, models.CategorySummary, rec.Summary)
	addMapping(row, models.CategoryOwner, rec.Owner)
	if err := addAppraisal(row, rec.Appraisal); err != nil {
		return nil, err
	}
	addMapping(row, models.CategoryDwelling, rec.Dwelling)
	if len(rec.OtherBuilding) > 0 {
		addMapping(row, models.CategoryOtherBuilding, rec.OtherBuilding[0])
	}
	addMapping(row, models.CategoryCommercial, rec.Commercial)
	addMapping(row, models.CategoryMarketLand, rec.MarketLand)
	return row, nil
}

// Rows flattens every record, stopping at the first malformed one.
func Rows(recs []*models.PropertyRecord) ([]*models.FlatRow, error) {
	rows := make([]*models.FlatRow, 0, len(recs))
	for _, rec := range recs {
		row, err := Row(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func addMapping(row *models.FlatRow, c models.Category, m *models.KeyValueMap) {
	if m == nil {
		return
	}
	for p := m.Oldest(); p != nil; p = p.Next() {
		row.Set(Column(p.Key, c), p.Value)
	}
}

var yoyFields = []struct {
	name  string
	value func(models.AppraisalEntry) float64
}{
	{"Land Value", func(e models.AppraisalEntry) float64 { return e.LandValue }},
	{"Building Value", func(e models.AppraisalEntry) float64 { return e.BuildingValue }},
	{"Total Value", func(e models.AppraisalEntry) float64 { return e.TotalValue }},
}

func addAppraisal(row *models.FlatRow, entries []models.AppraisalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b models.AppraisalEntry) int {
		return cmp.Compare(b.TaxYear, a.TaxYear)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].TaxYear == sorted[i-1].TaxYear {
			return fmt.Errorf("flatten: duplicate appraisal tax year %d", sorted[i].TaxYear)
		}
	}
	recent := sorted[:min(len(sorted), MaxAppraisalYears)]

	row.Set(Column("Tax Year", models.CategoryAppraisal), recent[0].TaxYear)
	row.Set(Column("Method", models.CategoryAppraisal), recent[0].Method)

	for i := 0; i+1 < len(recent); i++ {
		newer, older := recent[i], recent[i+1]
		for _, f := range yoyFields {
			row.Set(YoYColumn(f.name, older.TaxYear, newer.TaxYear), f.value(newer)-f.value(older))
		}
	}
	return nil
}
