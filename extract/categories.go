package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/cadastre/models"
)

// Summary extracts the summary fragment: every table merged into one mapping.
func Summary(fragment string) (*models.KeyValueMap, error) {
	return mergedTables(models.CategorySummary, fragment)
}

// Dwelling extracts the dwelling fragment: every table merged into one mapping.
func Dwelling(fragment string) (*models.KeyValueMap, error) {
	return mergedTables(models.CategoryDwelling, fragment)
}

// Commercial extracts the commercial fragment: every table merged into one mapping.
func Commercial(fragment string) (*models.KeyValueMap, error) {
	return mergedTables(models.CategoryCommercial, fragment)
}

// MarketLand extracts the market-land fragment: every table merged into one mapping.
func MarketLand(fragment string) (*models.KeyValueMap, error) {
	return mergedTables(models.CategoryMarketLand, fragment)
}

// AgForest extracts the agricultural and forest land fragment: every table
// merged into one mapping.
func AgForest(fragment string) (*models.KeyValueMap, error) {
	return mergedTables(models.CategoryAgForest, fragment)
}

// OtherBuilding extracts one mapping per table, one per accessory structure.
func OtherBuilding(fragment string) ([]*models.KeyValueMap, error) {
	return tablePerEntry(models.CategoryOtherBuilding, fragment)
}

// Owner extracts the primary owner from the first table of the fragment.
// Any further tables are ignored; see OwnerParties for the per-party view.
func Owner(fragment string) (*models.KeyValueMap, error) {
	if IsEmptyFragment(fragment) {
		return models.NewKeyValueMap(), nil
	}
	found, err := tables(models.CategoryOwner, fragment)
	if err != nil {
		return nil, err
	}
	return KeyValues(found.First()), nil
}

// partyRows is how many rows after a party header belong to that party.
const partyRows = 6

// OwnerParties extracts one mapping per owner party. A party starts at a
// "darkHeader" cell and spans the partyRows rows that follow it in document
// order, even across tbody or table boundaries. The first of those rows is a
// caption; each of the others contributes its first label/value pair.
func OwnerParties(fragment string) ([]*models.KeyValueMap, error) {
	parties := []*models.KeyValueMap{}
	if IsEmptyFragment(fragment) {
		return parties, nil
	}
	doc, err := parse(models.CategoryOwner, fragment)
	if err != nil {
		return nil, err
	}

	// Headers and rows interleaved in document order; a header's own row
	// precedes it, so only rows after the header are counted.
	nodes := doc.FindMatcher(partyWalkSel)
	nodes.Each(func(i int, header *goquery.Selection) {
		if !header.IsMatcher(partyHeaderSel) {
			return
		}
		party := models.NewKeyValueMap()
		seen := 0
		for j := i + 1; j < nodes.Length() && seen < partyRows; j++ {
			row := nodes.Eq(j)
			if !row.IsMatcher(rowSel) {
				continue
			}
			seen++
			if seen == 1 {
				continue
			}
			collectFirstPair(party, row)
		}
		if party.Len() > 0 {
			parties = append(parties, party)
		}
	})
	return parties, nil
}

func collectFirstPair(dst *models.KeyValueMap, row *goquery.Selection) {
	key := ownCells(row, keySel).First()
	value := ownCells(row, valueSel).First()
	if key.Length() == 0 || value.Length() == 0 {
		return
	}
	if label := cleanLabel(key.Text()); label != "" {
		dst.Set(label, strings.TrimSpace(value.Text()))
	}
}
