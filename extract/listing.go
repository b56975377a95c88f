package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/cadastre/models"
)

// Anchors inside a search result's title attribute, in the order the API
// writes them: "Address: ... Geocode: ... Legal Description: ...".
const (
	addressAnchor = "Address:"
	geocodeAnchor = "Geocode:"
	legalAnchor   = "Legal Description:"
)

// Listings parses a search-by-subdivision result page into one Listing per
// result row. Rows whose title carries no geocode are skipped.
func Listings(listingHTML string) ([]models.Listing, error) {
	doc, err := parse(models.CategoryInitial, listingHTML)
	if err != nil {
		return nil, err
	}

	listings := []models.Listing{}
	doc.FindMatcher(listingRowSel).Each(func(_ int, div *goquery.Selection) {
		title, _ := div.Attr("title")
		l, ok := parseListingTitle(title)
		if !ok {
			return
		}
		l.OwnerName, _ = div.FindMatcher(inputSel).First().Attr("value")
		l.OwnerName = strings.TrimSpace(l.OwnerName)
		listings = append(listings, l)
	})
	return listings, nil
}

// parseListingTitle splits a result title positionally on its anchors.
func parseListingTitle(title string) (models.Listing, bool) {
	geoStart := strings.Index(title, geocodeAnchor)
	if geoStart < 0 {
		return models.Listing{}, false
	}
	legalStart := strings.Index(title, legalAnchor)
	if legalStart < geoStart {
		legalStart = len(title)
	}

	var l models.Listing
	if addrStart := strings.Index(title, addressAnchor); addrStart >= 0 && addrStart < geoStart {
		l.Address = strings.TrimSpace(title[addrStart+len(addressAnchor) : geoStart])
	}
	l.Geocode = strings.TrimSpace(title[geoStart+len(geocodeAnchor) : legalStart])
	if legalStart < len(title) {
		l.LegalDescription = strings.TrimSpace(title[legalStart+len(legalAnchor):])
	}
	return l, l.Geocode != ""
}
