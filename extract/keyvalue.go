package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/cadastre/models"
)

// KeyValues extracts the label/value pairs of one table. Within each row,
// the n-th ".key" element is paired with the n-th ".value" element; when the
// counts differ the extra cells are dropped. A label seen again in a later
// row overwrites the earlier value but keeps its original position.
func KeyValues(table *goquery.Selection) *models.KeyValueMap {
	out := models.NewKeyValueMap()
	collectTable(out, table)
	return out
}

func collectTable(dst *models.KeyValueMap, table *goquery.Selection) {
	table.FindMatcher(rowSel).Each(func(_ int, row *goquery.Selection) {
		collectRow(dst, row)
	})
}

func collectRow(dst *models.KeyValueMap, row *goquery.Selection) {
	keys := ownCells(row, keySel)
	values := ownCells(row, valueSel)

	n := min(keys.Length(), values.Length())
	for i := 0; i < n; i++ {
		label := cleanLabel(keys.Eq(i).Text())
		if label == "" {
			continue
		}
		dst.Set(label, strings.TrimSpace(values.Eq(i).Text()))
	}
}

// ownCells returns the descendants of row matched by m whose nearest
// enclosing row is row itself, leaving out cells of nested tables.
func ownCells(row *goquery.Selection, m goquery.Matcher) *goquery.Selection {
	return row.FindMatcher(m).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ClosestMatcher(rowSel).IsSelection(row)
	})
}

// cleanLabel trims whitespace and one trailing colon: "Geocode: " → "Geocode".
func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ":")
	return strings.TrimSpace(s)
}

func parse(category models.Category, fragment string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, &models.ParseError{Category: category, Msg: "malformed markup", Err: err}
	}
	return doc, nil
}

// tables returns every <table> of the fragment in document order, nested
// tables included. A non-empty fragment without any table does not have the
// shape of a key/value category.
func tables(category models.Category, fragment string) (*goquery.Selection, error) {
	doc, err := parse(category, fragment)
	if err != nil {
		return nil, err
	}
	found := doc.FindMatcher(tableSel)
	if found.Length() == 0 {
		return nil, &models.ParseError{Category: category, Msg: "no table in fragment"}
	}
	return found, nil
}

// mergedTables folds every table of the fragment into one mapping; later
// tables win on label collisions.
func mergedTables(category models.Category, fragment string) (*models.KeyValueMap, error) {
	if IsEmptyFragment(fragment) {
		return models.NewKeyValueMap(), nil
	}
	found, err := tables(category, fragment)
	if err != nil {
		return nil, err
	}
	out := models.NewKeyValueMap()
	found.Each(func(_ int, t *goquery.Selection) {
		collectTable(out, t)
	})
	return out, nil
}

// tablePerEntry yields one mapping per table, unmerged.
func tablePerEntry(category models.Category, fragment string) ([]*models.KeyValueMap, error) {
	if IsEmptyFragment(fragment) {
		return []*models.KeyValueMap{}, nil
	}
	found, err := tables(category, fragment)
	if err != nil {
		return nil, err
	}
	out := make([]*models.KeyValueMap, 0, found.Length())
	found.Each(func(_ int, t *goquery.Selection) {
		out = append(out, KeyValues(t))
	})
	return out, nil
}
