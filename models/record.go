package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// KeyValueMap is an insertion-ordered label → value mapping. Setting an
// existing label overwrites the value in place, keeping its first position.
type KeyValueMap = orderedmap.OrderedMap[string, string]

// NewKeyValueMap returns an empty, ready-to-use KeyValueMap.
func NewKeyValueMap() *KeyValueMap {
	return orderedmap.New[string, string]()
}

// FlatRow is one tabular row: category-qualified column name → cell value.
// Cells hold string, int or float64 values.
type FlatRow = orderedmap.OrderedMap[string, any]

// NewFlatRow returns an empty FlatRow.
func NewFlatRow() *FlatRow {
	return orderedmap.New[string, any]()
}

// Listing is one search-result row for a property.
type Listing struct {
	OwnerName        string `json:"Owner Name"`
	Geocode          string `json:"Geocode"`
	Address          string `json:"Address"`
	LegalDescription string `json:"Legal Description"`
}

// KeyValues renders the listing as the record's "initial" mapping.
func (l Listing) KeyValues() *KeyValueMap {
	m := NewKeyValueMap()
	m.Set("Owner Name", l.OwnerName)
	m.Set("Geocode", l.Geocode)
	m.Set("Address", l.Address)
	m.Set("Legal Description", l.LegalDescription)
	return m
}

// AppraisalEntry is one tax year of appraisal history. The YoY fields are
// set only when an older year follows the entry in the extracted sequence.
type AppraisalEntry struct {
	TaxYear       int     `json:"Tax Year"`
	LandValue     float64 `json:"Land Value"`
	BuildingValue float64 `json:"Building Value"`
	TotalValue    float64 `json:"Total Value"`
	Method        string  `json:"Method"`

	LandValueYoY     *float64 `json:"Land Value YoY,omitempty"`
	BuildingValueYoY *float64 `json:"Building Value YoY,omitempty"`
	TotalValueYoY    *float64 `json:"Total Value YoY,omitempty"`
}

// HasYoY reports whether year-over-year deltas were derived for the entry.
func (e AppraisalEntry) HasYoY() bool {
	return e.LandValueYoY != nil || e.BuildingValueYoY != nil || e.TotalValueYoY != nil
}

// PropertyRecord is the normalized, nested view of one property for one
// assessment year. It is built once and not mutated afterwards.
type PropertyRecord struct {
	Geocode string `json:"geocode"`
	Year    int    `json:"year"`

	Initial       *KeyValueMap     `json:"initial"`
	Summary       *KeyValueMap     `json:"summary"`
	Owner         *KeyValueMap     `json:"owner"`
	OwnerParties  []*KeyValueMap   `json:"owner_parties,omitempty"`
	Appraisal     []AppraisalEntry `json:"appraisal"`
	Dwelling      *KeyValueMap     `json:"dwelling"`
	OtherBuilding []*KeyValueMap   `json:"other_building"`
	Commercial    *KeyValueMap     `json:"commercial"`
	MarketLand    *KeyValueMap     `json:"market_land"`

	// AgForest is nil when the agricultural/forest fragment was not fetched.
	AgForest *KeyValueMap `json:"agforest,omitempty"`
}

// Fragments holds the raw HTML fragment for each category of one property.
// A missing category is treated the same as an empty fragment.
type Fragments map[Category]string
