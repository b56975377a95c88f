package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/cadastre/models"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(geocode string, year int, owner string) *models.PropertyRecord {
	listing := models.Listing{OwnerName: owner, Geocode: geocode, Address: "1 MAIN ST"}
	summary := models.NewKeyValueMap()
	summary.Set("Property Type", "IR")
	summary.Set("Acres", "1.5")
	return &models.PropertyRecord{
		Geocode:       geocode,
		Year:          year,
		Initial:       listing.KeyValues(),
		Summary:       summary,
		Owner:         models.NewKeyValueMap(),
		Appraisal:     []models.AppraisalEntry{{TaxYear: year, LandValue: 1, BuildingValue: 2, TotalValue: 3, Method: "COST"}},
		Dwelling:      models.NewKeyValueMap(),
		OtherBuilding: []*models.KeyValueMap{},
		Commercial:    models.NewKeyValueMap(),
		MarketLand:    models.NewKeyValueMap(),
	}
}

func TestSaveAndLoadRecord(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	rec := testRecord("0310", 2023, "DOE JOHN")
	require.NoError(t, s.SaveRecord(ctx, rec, Location{CountyID: "56", Subdivision: "ALKALI CREEK"}))

	got, err := s.Record(ctx, "0310", 2023)
	require.NoError(t, err)

	want, _ := json.Marshal(rec)
	have, _ := json.Marshal(got)
	require.JSONEq(t, string(want), string(have))
	// Key order survives the round trip.
	require.Equal(t, "Property Type", got.Summary.Oldest().Key)

	_, err = s.Record(ctx, "0310", 2022)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRecordReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.SaveRecord(ctx, testRecord("0310", 2023, "OLD"), Location{}))
	require.NoError(t, s.SaveRecord(ctx, testRecord("0310", 2023, "NEW"), Location{}))

	got, err := s.Records(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	owner, _ := got[0].Initial.Get("Owner Name")
	require.Equal(t, "NEW", owner)
}

func TestRecordsFilter(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.SaveRecord(ctx, testRecord("B", 2023, ""), Location{CountyID: "56", Subdivision: "S1"}))
	require.NoError(t, s.SaveRecord(ctx, testRecord("A", 2023, ""), Location{CountyID: "56", Subdivision: "S1"}))
	require.NoError(t, s.SaveRecord(ctx, testRecord("C", 2023, ""), Location{CountyID: "56", Subdivision: "S2"}))
	require.NoError(t, s.SaveRecord(ctx, testRecord("A", 2022, ""), Location{CountyID: "3", Subdivision: "S1"}))

	all, err := s.Records(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "A", all[0].Geocode)
	require.Equal(t, 2022, all[0].Year)

	sub, err := s.Records(ctx, Filter{CountyID: "56", Subdivision: "S1"})
	require.NoError(t, err)
	require.Len(t, sub, 2)
	require.Equal(t, "A", sub[0].Geocode)
	require.Equal(t, "B", sub[1].Geocode)

	none, err := s.Records(ctx, Filter{Year: 1999})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestHarvestedSubdivisions(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.MarkSubdivision(ctx, "56", "S1", 2023))
	require.NoError(t, s.MarkSubdivision(ctx, "56", "S1", 2023))
	require.NoError(t, s.MarkSubdivision(ctx, "56", "S2", 2022))

	done, err := s.HarvestedSubdivisions(ctx, "56", 2023)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"S1": true}, done)
}

func TestSaveNilRecord(t *testing.T) {
	require.Error(t, openTest(t).SaveRecord(context.Background(), nil, Location{}))
}
