package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	selectorListingRow   = "tr.even, tr.odd"
	selectorListingLink  = "td.views-field-title a"
	selectorNextPage     = `a[title="Go to next page"]`
	selectorBody         = "div.field-docs-content"
	selectorTitle        = "div.field-ds-doc-title"
	selectorDate         = "span.date-display-single"
	selectorPerson       = "h3.diet-title"
	selectorCitation     = "p.ucsbapp_citation"
	selectorState        = "div.field-spot-state"
	selectorCity         = "div.field-spot-city"
	selectorCategoryMenu = ".menu-name-menu-doc-cat-menu .dropdown-toggle"
)

// Listing is the parsed content of one listing page.
type Listing struct {
	RecordLinks []string
	Next        string
}

// ParseListing extracts the ordered record links and the next-page link. A
// page without rows is valid; a row without a title link is a ParseError.
func ParseListing(page Page) (Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return Listing{}, &ParseError{URL: page.URL, Element: "listing", Reason: err.Error()}
	}
	base, err := url.Parse(page.BaseURL())
	if err != nil {
		return Listing{}, &ParseError{URL: page.URL, Element: "listing", Reason: err.Error()}
	}

	var listing Listing
	var parseErr error
	doc.Find(selectorListingRow).EachWithBreak(func(i int, row *goquery.Selection) bool {
		href, ok := row.Find(selectorListingLink).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			parseErr = &ParseError{
				URL:     page.URL,
				Element: "record link",
				Reason:  fmt.Sprintf("listing row %d has no title link", i+1),
			}
			return false
		}
		link, err := resolve(base, href)
		if err != nil {
			parseErr = &ParseError{URL: page.URL, Element: "record link", Reason: err.Error()}
			return false
		}
		listing.RecordLinks = append(listing.RecordLinks, link)
		return true
	})
	if parseErr != nil {
		return Listing{}, parseErr
	}

	if href, ok := doc.Find(selectorNextPage).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		next, err := resolve(base, href)
		if err != nil {
			return Listing{}, &ParseError{URL: page.URL, Element: "next page link", Reason: err.Error()}
		}
		listing.Next = next
	}
	return listing, nil
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return NormalizeURL(base.ResolveReference(ref).String())
}

// FieldExtractor pulls one metadata value out of a record page. It sees the
// values extracted by earlier extractors in the chain. An empty result is
// stored as UnknownValue.
type FieldExtractor func(doc *goquery.Document, pageURL string, soFar Metadata) string

// FieldRule binds an extractor to the key it populates.
type FieldRule struct {
	Key     MetadataKey
	Extract FieldExtractor
}

// RecordParser turns a record page into metadata and body text.
type RecordParser struct {
	fields []FieldRule
	body   func(doc *goquery.Document) string
}

// NewRecordParser returns a parser for the default archive markup, using
// location to fill city and state when the page does not label them.
func NewRecordParser(location LocationParser) *RecordParser {
	if location == nil {
		location = TitleLocationParser{}
	}
	return &RecordParser{
		fields: []FieldRule{
			{Key: KeyTitle, Extract: selectText(selectorTitle)},
			{Key: KeyDate, Extract: selectText(selectorDate)},
			{Key: KeyPerson, Extract: selectText(selectorPerson)},
			{Key: KeyCitation, Extract: selectText(selectorCitation)},
			{Key: KeyState, Extract: stateExtractor(location)},
			{Key: KeyCity, Extract: cityExtractor(location)},
			{Key: KeyCategory, Extract: extractCategories},
			{Key: KeyURL, Extract: func(_ *goquery.Document, pageURL string, _ Metadata) string { return pageURL }},
		},
		body: extractBody,
	}
}

// WithField replaces the extractor for key, leaving the chain order intact.
func (p *RecordParser) WithField(key MetadataKey, fn FieldExtractor) *RecordParser {
	fields := append([]FieldRule(nil), p.fields...)
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Extract = fn
		}
	}
	return &RecordParser{fields: fields, body: p.body}
}

// Parse extracts every recognized key and the body. A page without a title is
// not a record page and yields a ParseError; any other missing field becomes
// UnknownValue and a missing body becomes the empty string.
func (p *RecordParser) Parse(page Page) (Metadata, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, "", &ParseError{URL: page.URL, Element: "record", Reason: err.Error()}
	}
	md := NewMetadata()
	for _, rule := range p.fields {
		if v := clean(rule.Extract(doc, page.URL, md)); v != "" {
			md[rule.Key] = v
		}
	}
	if md[KeyTitle] == UnknownValue {
		return nil, "", &ParseError{URL: page.URL, Element: string(KeyTitle), Reason: "record title not found"}
	}
	return md, p.body(doc), nil
}

func selectText(selector string) FieldExtractor {
	return func(doc *goquery.Document, _ string, _ Metadata) string {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return ""
		}
		return sel.Text()
	}
}

func stateExtractor(location LocationParser) FieldExtractor {
	labeled := selectText(selectorState)
	return func(doc *goquery.Document, pageURL string, soFar Metadata) string {
		if v := clean(labeled(doc, pageURL, soFar)); v != "" {
			return v
		}
		return location.State(soFar.Get(KeyTitle))
	}
}

func cityExtractor(location LocationParser) FieldExtractor {
	labeled := selectText(selectorCity)
	return func(doc *goquery.Document, pageURL string, soFar Metadata) string {
		if v := clean(labeled(doc, pageURL, soFar)); v != "" {
			return v
		}
		return location.City(soFar.Get(KeyTitle), soFar.Get(KeyState))
	}
}

func extractCategories(doc *goquery.Document, _ string, _ Metadata) string {
	var names []string
	doc.Find(selectorCategoryMenu).Each(func(_ int, s *goquery.Selection) {
		if title, ok := s.Attr("title"); ok && strings.TrimSpace(title) != "" {
			names = append(names, strings.TrimSpace(title))
		}
	})
	return strings.Join(names, ", ")
}

func extractBody(doc *goquery.Document) string {
	sel := doc.Find(selectorBody).First()
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}

func clean(s string) string {
	return strings.TrimSpace(s)
}
