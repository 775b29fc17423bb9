package wttj

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"offerwatch/internal/offer"
	"offerwatch/internal/scrape/util"
)

// ErrRequiredField is wrapped by every ExtractionError.
var ErrRequiredField = errors.New("required field not found")

// ExtractionError means the page no longer has the shape the extractor
// expects: a required field is missing.
type ExtractionError struct {
	URL   string
	Field string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Field, ErrRequiredField)
}

func (e *ExtractionError) Unwrap() error { return ErrRequiredField }

// Extract reads one offer page. Only the title and the offer URL are
// required; every other lookup falls back to "".
func Extract(doc *goquery.Document, offerURL string) (offer.Fields, error) {
	var f offer.Fields
	if strings.TrimSpace(offerURL) == "" {
		return f, &ExtractionError{URL: offerURL, Field: "offer_url"}
	}

	h1 := doc.Find(TitleSelector).First()
	f.Title = util.CleanText(h1.Text())
	if h1.Length() == 0 || f.Title == "" {
		return f, &ExtractionError{URL: offerURL, Field: "title"}
	}

	for _, r := range IconRules {
		r.Set(&f, markerText(doc, r))
	}

	f.CompanyName = util.CleanText(doc.Find(CompanyNameSelector).First().Text())
	if href, ok := doc.Find(CompanyLinkSelector).First().Attr("href"); ok {
		origin := util.Origin(offerURL)
		if origin == "" {
			origin = DefaultBaseURL
		}
		f.CompanyURL = util.ResolveURL(origin, href)
	}

	for _, r := range SectionRules {
		r.Set(&f, sectionText(doc, r.Selector))
	}
	// profile text carries the description in front of the profile section
	if profile := doc.Find(ProfileSectionSelector).First(); profile.Length() > 0 {
		f.ProfileText = f.Description + util.Flatten(profile.Text())
	}
	return f, nil
}

func markerText(doc *goquery.Document, r FieldRule) string {
	sel := doc.Find(r.Marker).First()
	if sel.Length() == 0 {
		return ""
	}
	for i := 0; i < r.Ascend; i++ {
		sel = sel.Parent()
		if sel.Length() == 0 {
			return ""
		}
	}
	return util.CleanText(sel.Text())
}

func sectionText(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return util.Flatten(sel.Text())
}
