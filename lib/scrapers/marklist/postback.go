package marklist

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Hidden protocol fields the server expects echoed on every postback.
const (
	fieldEventTarget   = "__EVENTTARGET"
	fieldEventArgument = "__EVENTARGUMENT"
	fieldLastFocus     = "__LASTFOCUS"
)

// reportButtonField triggers report generation when present in a
// postback, so every non-report postback must drop it.
const reportButtonField = "ctl00$ContentPlaceHolder3$Button1"

type FieldMap map[string]string

// ExtractFields reads every named <input> on the page, to be resubmitted
// verbatim on the next postback (__VIEWSTATE and friends included).
// <select> values are deliberately left out: the cascade engine supplies
// those explicitly from its selection state.
func ExtractFields(doc *goquery.Document) FieldMap {
	fields := FieldMap{}
	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		fields[name] = input.AttrOr("value", "")
	})
	return fields
}

// selectName resolves a client-side element id to the server-side field
// name of its <select>.
func selectName(doc *goquery.Document, id string) (string, bool) {
	sel := doc.Find(fmt.Sprintf("select[id=%q]", id))
	if sel.Length() == 0 {
		return "", false
	}
	return sel.First().Attr("name")
}

// BuildPostback assembles the form body simulating a change event on the
// element with id `eventTargetID`. Overrides are keyed by element id and
// resolved to field names against the current page; an id that isn't on
// the page is skipped quietly, since some selects are only rendered once
// earlier steps are chosen.
func BuildPostback(doc *goquery.Document, overrides map[string]string, eventTargetID string) FieldMap {
	fields := ExtractFields(doc)

	for id, val := range overrides {
		name, ok := selectName(doc, id)
		if !ok {
			continue
		}
		fields[name] = val
	}

	target, _ := selectName(doc, eventTargetID)
	fields[fieldEventTarget] = target
	fields[fieldEventArgument] = ""
	fields[fieldLastFocus] = ""
	delete(fields, reportButtonField)

	return fields
}
