package flatten

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/cadastre/models"
)

func kv(pairs ...string) *models.KeyValueMap {
	m := models.NewKeyValueMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

func entry(year int, land, building, total float64) models.AppraisalEntry {
	return models.AppraisalEntry{TaxYear: year, LandValue: land, BuildingValue: building, TotalValue: total, Method: "COST"}
}

func keys(row *models.FlatRow) []string {
	var out []string
	for p := row.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

func sampleRecord() *models.PropertyRecord {
	return &models.PropertyRecord{
		Geocode: "0310",
		Year:    2023,
		Initial: models.Listing{OwnerName: "DOE JOHN", Geocode: "0310", Address: "1010 MAIN ST", LegalDescription: "LOT 4"}.KeyValues(),
		Summary: kv("Subcategory", "Residential"),
		Owner:   kv("Owner", "DOE JOHN"),
		Appraisal: []models.AppraisalEntry{
			entry(2023, 100, 200, 300),
			entry(2022, 90, 190, 280),
			entry(2021, 80, 170, 250),
		},
		Dwelling: models.NewKeyValueMap(),
		OtherBuilding: []*models.KeyValueMap{
			kv("Type", "Garage"),
			kv("Type", "Shed", "Area", "80"),
			kv("Type", "Barn"),
		},
		Commercial: models.NewKeyValueMap(),
		MarketLand: kv("Acres", "0.25"),
	}
}

func TestRow(t *testing.T) {
	rec := sampleRecord()
	row, err := Row(rec)
	require.NoError(t, err)

	require.Equal(t, []string{
		"Owner Name_initial",
		"Geocode_initial",
		"Address_initial",
		"Legal Description_initial",
		"Subcategory_summary",
		"Owner_owner",
		"Tax Year_appraisal",
		"Method_appraisal",
		"YOY Land Value (2022-2023)",
		"YOY Building Value (2022-2023)",
		"YOY Total Value (2022-2023)",
		"YOY Land Value (2021-2022)",
		"YOY Building Value (2021-2022)",
		"YOY Total Value (2021-2022)",
		"Type_other_building",
		"Acres_market_land",
	}, keys(row))

	v, _ := row.Get("YOY Total Value (2022-2023)")
	require.Equal(t, 20.0, v)
	v, _ = row.Get("YOY Total Value (2021-2022)")
	require.Equal(t, 30.0, v)
	v, _ = row.Get("Tax Year_appraisal")
	require.Equal(t, 2023, v)
	v, _ = row.Get("Type_other_building")
	require.Equal(t, "Garage", v)

	// the nested record keeps every accessory building
	require.Len(t, rec.OtherBuilding, 3)
}

func TestRowLeavesOutAgForest(t *testing.T) {
	rec := sampleRecord()
	want, err := Row(rec)
	require.NoError(t, err)

	rec.AgForest = kv("Grazing Acres", "40")
	got, err := Row(rec)
	require.NoError(t, err)
	require.Equal(t, keys(want), keys(got))
}

func TestRowKeepsThreeMostRecentYears(t *testing.T) {
	rec := sampleRecord()
	// unsorted on purpose, with a fourth, older year
	rec.Appraisal = []models.AppraisalEntry{
		entry(2020, 1, 1, 1),
		entry(2022, 90, 190, 280),
		entry(2023, 100, 200, 300),
		entry(2021, 80, 170, 250),
	}
	row, err := Row(rec)
	require.NoError(t, err)

	var yoy []string
	for _, k := range keys(row) {
		if strings.HasPrefix(k, "YOY Total Value") {
			yoy = append(yoy, k)
		}
	}
	require.Equal(t, []string{"YOY Total Value (2022-2023)", "YOY Total Value (2021-2022)"}, yoy)
	_, ok := row.Get("YOY Total Value (2020-2021)")
	require.False(t, ok)
}

func TestRowAppraisalDepth(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.AppraisalEntry
		wantYoY int
	}{
		{"none", nil, 0},
		{"one year", []models.AppraisalEntry{entry(2023, 1, 1, 1)}, 0},
		{"two years", []models.AppraisalEntry{entry(2023, 2, 2, 2), entry(2022, 1, 1, 1)}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord()
			rec.Appraisal = tt.entries
			row, err := Row(rec)
			require.NoError(t, err)

			n := 0
			for _, k := range keys(row) {
				if strings.HasPrefix(k, "YOY ") {
					n++
				}
			}
			require.Equal(t, tt.wantYoY, n)
		})
	}
}

func TestRowEmptyCategories(t *testing.T) {
	rec := &models.PropertyRecord{Geocode: "0310", Initial: kv("Geocode", "0310")}
	row, err := Row(rec)
	require.NoError(t, err)
	require.Equal(t, []string{"Geocode_initial"}, keys(row))
}

func TestRowErrors(t *testing.T) {
	_, err := Row(nil)
	require.ErrorIs(t, err, ErrNilRecord)

	rec := sampleRecord()
	rec.Appraisal = []models.AppraisalEntry{entry(2023, 1, 1, 1), entry(2023, 2, 2, 2)}
	_, err = Row(rec)
	require.ErrorContains(t, err, "duplicate appraisal tax year 2023")
}

func TestRowDeterministic(t *testing.T) {
	a, err := Row(sampleRecord())
	require.NoError(t, err)
	b, err := Row(sampleRecord())
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, string(ja), string(jb))
}

func TestTableAlignsColumns(t *testing.T) {
	r1 := models.NewFlatRow()
	r1.Set("Geocode_initial", "A")
	r1.Set("YOY Total Value (2022-2023)", 20.0)

	r2 := models.NewFlatRow()
	r2.Set("Geocode_initial", "B")
	r2.Set("YOY Total Value (2021-2022)", 5.5)

	tbl := NewTable([]*models.FlatRow{r1, r2})
	require.Equal(t, []string{"Geocode_initial", "YOY Total Value (2022-2023)", "YOY Total Value (2021-2022)"}, tbl.Columns)
	require.Equal(t, []any{"A", 20.0, nil}, tbl.Rows[0])
	require.Equal(t, []any{"B", nil, 5.5}, tbl.Rows[1])

	var csvOut bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&csvOut))
	require.Equal(t,
		"Geocode_initial,YOY Total Value (2022-2023),YOY Total Value (2021-2022)\nA,20,\nB,,5.5\n",
		csvOut.String())

	var jsonOut bytes.Buffer
	require.NoError(t, tbl.WriteJSON(&jsonOut))
	require.JSONEq(t, `[
		{"Geocode_initial":"A","YOY Total Value (2022-2023)":20,"YOY Total Value (2021-2022)":null},
		{"Geocode_initial":"B","YOY Total Value (2022-2023)":null,"YOY Total Value (2021-2022)":5.5}
	]`, jsonOut.String())
}

func TestRender(t *testing.T) {
	row, err := Row(sampleRecord())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Vertical(row).Render(&out, "markdown"))
	require.Contains(t, out.String(), "Address_initial")
	require.Contains(t, out.String(), "1010 MAIN ST")

	require.Error(t, Vertical(row).Render(&out, "xml"))
}

func TestFormatCell(t *testing.T) {
	require.Equal(t, "", FormatCell(nil))
	require.Equal(t, "2023", FormatCell(2023))
	require.Equal(t, "20000", FormatCell(20000.0))
	require.Equal(t, "-1500.5", FormatCell(-1500.5))
	require.Equal(t, "COST", FormatCell("COST"))
}
