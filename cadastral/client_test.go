package cadastral

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/cadastre/config"
	"github.com/use-agent/cadastre/models"
)

const (
	testGeocode = "03-1033-32-1-10-11-0000"

	summaryFragment   = `<table><tr><td class="key">Property Type:</td><td class="value">IR - Improved Property - Rural</td></tr></table>`
	ownerFragment     = `<table><tr><td class="key">Primary Owner:</td><td class="value">DOE JOHN</td></tr></table>`
	appraisalFragment = `<table class="subTable">` +
		`<tr><th>Tax Year</th><th>Land</th><th>Building</th><th>Total</th><th>Method</th></tr>` +
		`<tr><td>2023</td><td>50000</td><td>150000</td><td>200000</td><td>COST</td></tr>` +
		`<tr><td>2022</td><td>45000</td><td>135000</td><td>180000</td><td>COST</td></tr>` +
		`</table>`
	emptyFragment    = `<div>No dwelling info exists for this parcel</div>`
	agForestFragment = `<table><tr><td class="key">Grazing Acres:</td><td class="value">40</td></tr></table>`
)

func testConfig(baseURL string) config.CadastralConfig {
	return config.CadastralConfig{
		BaseURL:           baseURL,
		Timeout:           5 * time.Second,
		EmptyRetries:      3,
		RetryWait:         time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             100,
		Concurrency:       7,
	}
}

// jsonString writes body as a JSON string literal, the way the API wraps
// its fragments.
func jsonString(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	return newFakeAPIWith(t, nil)
}

// newFakeAPIWith serves the fake API with some paths replaced by overrides.
func newFakeAPIWith(t *testing.T, overrides map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range overrides {
		mux.HandleFunc(path, h)
	}
	mux.HandleFunc(countyListPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Id":"3","Name":"Big Horn"},{"Id":"56","Name":"Yellowstone"}]`))
	})
	mux.HandleFunc(subdivisionListPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "56", r.URL.Query().Get("countyid"))
		w.Write([]byte(`[{"Subdiv":"23RD STREET SUBD"},{"Subdiv":"  "},{"Subdiv":"ALKALI CREEK"}]`))
	})
	mux.HandleFunc(subdivisionPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "23RD STREET SUBD", r.URL.Query().Get("subdivision"))
		// A stray backslash that is not a valid JSON escape.
		w.Write([]byte(`"<div class=\"searchResult\" title=\"Address: 1010 MAIN ST Geocode: ` + testGeocode + ` Legal Description: LOT 4 \ BLK\2\"><input value=\" DOE JOHN \"/></div>\r\n"`))
	})
	fragments := map[string]string{
		"/summary/getsummarydata":             summaryFragment,
		"/owner/getownerdata":                 ownerFragment,
		"/appraisal/getappraisaldata":         appraisalFragment,
		"/dwelling/getdwellingdata":           emptyFragment,
		"/otherbuilding/getotherbuildingdata": "",
		"/commercial/getcommercialdata":       emptyFragment,
		"/marketland/getmarketlanddata":       "",
		"/agforest/getagforestdata":           agForestFragment,
	}
	for path, body := range fragments {
		if _, ok := overrides[path]; ok {
			continue
		}
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, testGeocode, r.URL.Query().Get("geocode"))
			assert.Equal(t, "2023", r.URL.Query().Get("year"))
			jsonString(w, body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCountiesAndSubdivisions(t *testing.T) {
	c := NewClient(testConfig(newFakeAPI(t).URL))

	counties, err := c.Counties(context.Background())
	require.NoError(t, err)
	require.Equal(t, []models.County{{ID: "3", Name: "Big Horn"}, {ID: "56", Name: "Yellowstone"}}, counties)

	subs, err := c.Subdivisions(context.Background(), "56")
	require.NoError(t, err)
	require.Equal(t, []string{"23RD STREET SUBD", "ALKALI CREEK"}, subs)
}

func TestListingsRepairsEscapes(t *testing.T) {
	c := NewClient(testConfig(newFakeAPI(t).URL))

	listings, err := c.Listings(context.Background(), "23RD STREET SUBD", "56")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, models.Listing{
		OwnerName:        "DOE JOHN",
		Geocode:          testGeocode,
		Address:          "1010 MAIN ST",
		LegalDescription: `LOT 4 \ BLK\2`,
	}, listings[0])
}

func TestProperty(t *testing.T) {
	c := NewClient(testConfig(newFakeAPI(t).URL))

	listing := models.Listing{OwnerName: "DOE JOHN", Geocode: testGeocode}
	rec, err := c.Property(context.Background(), listing, 2023)
	require.NoError(t, err)

	require.Equal(t, testGeocode, rec.Geocode)
	v, _ := rec.Summary.Get("Property Type")
	require.Equal(t, "IR - Improved Property - Rural", v)
	v, _ = rec.Owner.Get("Primary Owner")
	require.Equal(t, "DOE JOHN", v)
	require.Len(t, rec.Appraisal, 2)
	require.Equal(t, 2023, rec.Appraisal[0].TaxYear)
	require.NotNil(t, rec.Appraisal[0].TotalValueYoY)
	require.Equal(t, 20000.0, *rec.Appraisal[0].TotalValueYoY)
	require.Zero(t, rec.Dwelling.Len())
	require.Empty(t, rec.OtherBuilding)
	require.Zero(t, rec.MarketLand.Len())
	v, _ = rec.AgForest.Get("Grazing Acres")
	require.Equal(t, "40", v)
}

func TestFragmentsSkipsFailedAgForest(t *testing.T) {
	srv := newFakeAPIWith(t, map[string]http.HandlerFunc{
		"/agforest/getagforestdata": http.NotFound,
	})

	fragments, err := NewClient(testConfig(srv.URL)).Fragments(context.Background(), testGeocode, 2023)
	require.NoError(t, err)
	require.Len(t, fragments, len(models.FragmentCategories))
	_, ok := fragments[models.CategoryAgForest]
	require.False(t, ok)
}

func TestRetriesEmptyBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			return
		}
		w.Write([]byte(`[{"Id":"1","Name":"Beaverhead"}]`))
	}))
	defer srv.Close()

	counties, err := NewClient(testConfig(srv.URL)).Counties(context.Background())
	require.NoError(t, err)
	require.Len(t, counties, 1)
	require.Equal(t, int32(3), calls.Load())
}

func TestEmptyBodyExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Counties(context.Background())
	require.ErrorIs(t, err, ErrEmptyBody)
	require.Equal(t, int32(4), calls.Load())

	// Fragments degrade to empty instead.
	fragment, err := c.Fragment(context.Background(), models.CategoryDwelling, testGeocode, 2023)
	require.NoError(t, err)
	require.Empty(t, fragment)
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Fragments(context.Background(), testGeocode, 2023)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestFragmentUnknownCategory(t *testing.T) {
	c := NewClient(testConfig("http://127.0.0.1:1"))
	_, err := c.Fragment(context.Background(), models.CategoryInitial, testGeocode, 2023)
	require.Error(t, err)
}
