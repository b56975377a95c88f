package extract

import (
	"errors"

	"github.com/use-agent/cadastre/models"
)

// Record runs every category extractor over one property's fragments and
// assembles the nested record. A ParseError from any category fails the
// whole record; no partial record is returned. AgForest is only set when
// fragments carries that category.
func Record(initial models.Listing, year int, fragments models.Fragments) (*models.PropertyRecord, error) {
	rec := &models.PropertyRecord{
		Geocode: initial.Geocode,
		Year:    year,
		Initial: initial.KeyValues(),
	}

	var err error
	if rec.Summary, err = Summary(fragments[models.CategorySummary]); err != nil {
		return nil, scoped(err, initial.Geocode)
	}
	if rec.Owner, err = Owner(fragments[models.CategoryOwner]); err != nil {
		return nil, scoped(err, initial.Geocode)
	}
	if rec.OwnerParties, err = OwnerParties(fragments[models.CategoryOwner]); err != nil {
		return nil, scoped(err, initial.Geocode)
	}
	if rec.Appraisal, err = Appraisal(fragments[models.CategoryAppraisal]); err != nil {
		return nil, scoped(err, initial.Geocode)
	}
	if rec.Dwelling, err = Dwelling(fragments[models.CategoryDwelling]); err != nil {
		return nil, scoped(err, initial.Geocode)
	}
	if rec.OtherBuilding, err = OtherBuilding(fragments[models.CategoryOtherBuilding]); err != nil {
		return nil, scoped(err, initial.Geocode)
	}
	if rec.Commercial, err = Commercial(fragments[models.CategoryCommercial]); err != nil {
		return nil, scoped(err, initial.Geocode)
	}
	if rec.MarketLand, err = MarketLand(fragments[models.CategoryMarketLand]); err != nil {
		return nil, scoped(err, initial.Geocode)
	}
	if fragment, ok := fragments[models.CategoryAgForest]; ok {
		if rec.AgForest, err = AgForest(fragment); err != nil {
			return nil, scoped(err, initial.Geocode)
		}
	}
	return rec, nil
}

// scoped stamps the property's geocode onto a category ParseError.
func scoped(err error, geocode string) error {
	var pe *models.ParseError
	if errors.As(err, &pe) && pe.Geocode == "" {
		pe.Geocode = geocode
	}
	return err
}
