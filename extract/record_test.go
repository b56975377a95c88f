package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/cadastre/models"
)

var sampleListing = models.Listing{
	OwnerName:        "DOE JOHN",
	Geocode:          "03103332110110000",
	Address:          "1010 MAIN ST",
	LegalDescription: "LOT 4",
}

func sampleFragments() models.Fragments {
	return models.Fragments{
		models.CategorySummary: kvTable(kvRow("Geocode:", "03103332110110000", "Subcategory:", "Residential")),
		models.CategoryOwner:   kvTable(kvRow("Owner:", "DOE JOHN")),
		models.CategoryAppraisal: appraisalHTML(
			[5]string{"2023", "100000", "200000", "300000", "COST"},
			[5]string{"2022", "90000", "190000", "280000", "COST"},
		),
		models.CategoryDwelling:      kvTable(kvRow("Year Built:", "1978")),
		models.CategoryOtherBuilding: kvTable(kvRow("Type:", "Garage")) + kvTable(kvRow("Type:", "Shed")),
		models.CategoryCommercial:    `<div>No Commercial info exists for this parcel</div>`,
		models.CategoryMarketLand:    kvTable(kvRow("Acres:", "0.25")),
	}
}

func TestRecord(t *testing.T) {
	rec, err := Record(sampleListing, 2023, sampleFragments())
	require.NoError(t, err)

	require.Equal(t, "03103332110110000", rec.Geocode)
	require.Equal(t, 2023, rec.Year)
	addr, ok := rec.Initial.Get("Address")
	require.True(t, ok)
	require.Equal(t, "1010 MAIN ST", addr)
	require.Equal(t, 2, rec.Summary.Len())
	require.Len(t, rec.Appraisal, 2)
	require.Len(t, rec.OtherBuilding, 2)
	require.Equal(t, 0, rec.Commercial.Len())
	require.Empty(t, rec.OwnerParties)
	require.Nil(t, rec.AgForest)
}

func TestRecordAgForest(t *testing.T) {
	frags := sampleFragments()
	frags[models.CategoryAgForest] = kvTable(kvRow("Grazing Acres:", "40"))

	rec, err := Record(sampleListing, 2023, frags)
	require.NoError(t, err)
	require.Equal(t, [][2]string{{"Grazing Acres", "40"}}, pairs(rec.AgForest))

	frags[models.CategoryAgForest] = `<p>No Ag/Forest info exists for this parcel</p>`
	rec, err = Record(sampleListing, 2023, frags)
	require.NoError(t, err)
	require.NotNil(t, rec.AgForest)
	require.Equal(t, 0, rec.AgForest.Len())
}

func TestRecordMissingFragmentIsEmpty(t *testing.T) {
	frags := sampleFragments()
	delete(frags, models.CategoryDwelling)

	rec, err := Record(sampleListing, 2023, frags)
	require.NoError(t, err)
	require.Equal(t, 0, rec.Dwelling.Len())
}

func TestRecordParseErrorIsFatal(t *testing.T) {
	frags := sampleFragments()
	frags[models.CategoryAppraisal] = appraisalHTML([5]string{"2023", "n/a", "1", "1", "COST"})

	rec, err := Record(sampleListing, 2023, frags)
	require.Nil(t, rec)
	var pe *models.ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, models.CategoryAppraisal, pe.Category)
	require.Equal(t, sampleListing.Geocode, pe.Geocode)
	require.Contains(t, err.Error(), sampleListing.Geocode)
}

func TestRecordJSONRoundTrip(t *testing.T) {
	rec, err := Record(sampleListing, 2023, sampleFragments())
	require.NoError(t, err)

	first, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded models.PropertyRecord
	require.NoError(t, json.Unmarshal(first, &decoded))

	second, err := json.Marshal(&decoded)
	require.NoError(t, err)
	require.JSONEq(t, string(first), string(second))
	require.Equal(t, string(first), string(second))
}
