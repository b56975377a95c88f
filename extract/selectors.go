package extract

import "github.com/andybalholm/cascadia"

// Selectors for the cadastral fragment markup, compiled once and handed to
// goquery's *Matcher methods.
var (
	tableSel        = cascadia.MustCompile("table")
	rowSel          = cascadia.MustCompile("tr")
	cellSel         = cascadia.MustCompile("td")
	keySel          = cascadia.MustCompile(".key")
	valueSel        = cascadia.MustCompile(".value")
	appraisalRowSel = cascadia.MustCompile("table.subTable tr")
	partyHeaderSel  = cascadia.MustCompile("td.darkHeader")
	partyWalkSel    = cascadia.MustCompile("td.darkHeader, tr")
	listingRowSel   = cascadia.MustCompile("div.searchResult, div.searchResultAltRow")
	inputSel        = cascadia.MustCompile("input")
)
