package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// emptyResponse matches the sentinel sentence the cadastral API renders
// instead of a table when a category has no data, e.g.
// "No Dwelling info exists for this parcel".
var emptyResponse = regexp.MustCompile(`\bNo\s+(?:\S+\s+)+?info exists for this parcel`)

// IsEmptyResponse reports whether the plain text of a fragment is the
// "no data" sentinel.
func IsEmptyResponse(text string) bool {
	return emptyResponse.MatchString(strings.Join(strings.Fields(text), " "))
}

// IsEmptyFragment reports whether a raw fragment carries no data: it is
// blank, or its text is the "no data" sentinel. It only tokenizes the
// markup, so it is safe to call on fragments that would not survive a
// structural parse.
func IsEmptyFragment(fragment string) bool {
	text := FragmentText(fragment)
	if strings.TrimSpace(text) == "" {
		return true
	}
	return IsEmptyResponse(text)
}

// FragmentText returns the concatenated text content of an HTML fragment,
// skipping <script> and <style> bodies.
func FragmentText(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var buf strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if tag := string(tn); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if tag := string(tn); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				buf.Write(tokenizer.Text())
				buf.WriteByte(' ')
			}
		}
	}
}
