package models

import (
	"fmt"
	"slices"
)

// Category names one section of a property's assessment data. The string
// value doubles as the record key and the flat-row column suffix.
type Category string

const (
	CategoryInitial       Category = "initial"
	CategorySummary       Category = "summary"
	CategoryOwner         Category = "owner"
	CategoryAppraisal     Category = "appraisal"
	CategoryDwelling      Category = "dwelling"
	CategoryOtherBuilding Category = "other_building"
	CategoryCommercial    Category = "commercial"
	CategoryMarketLand    Category = "market_land"
	CategoryAgForest      Category = "agforest"
)

// FragmentCategories lists the seven categories served as HTML fragments,
// in record order.
var FragmentCategories = []Category{
	CategorySummary,
	CategoryOwner,
	CategoryAppraisal,
	CategoryDwelling,
	CategoryOtherBuilding,
	CategoryCommercial,
	CategoryMarketLand,
}

// SupplementalCategories are fetched alongside the fragment categories but
// are optional: a failure to fetch one does not fail the property, and they
// are kept in the nested record only.
var SupplementalCategories = []Category{
	CategoryAgForest,
}

// ParseCategory validates a category name received from a caller.
func ParseCategory(s string) (Category, error) {
	for _, c := range FragmentCategories {
		if string(c) == s {
			return c, nil
		}
	}
	for _, c := range SupplementalCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Supplemental reports whether the category is optional.
func (c Category) Supplemental() bool {
	return slices.Contains(SupplementalCategories, c)
}

// ListShaped reports whether the category's empty value is a list rather
// than a mapping.
func (c Category) ListShaped() bool {
	return c == CategoryAppraisal || c == CategoryOtherBuilding
}
