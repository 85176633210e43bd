package crawler

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func htmlPage(url, body string) Page {
	return Page{URL: url, FinalURL: url, StatusCode: 200, Body: []byte(body)}
}

func TestParseListingResolvesLinksAndNext(t *testing.T) {
	t.Parallel()

	page := htmlPage(testBase+"/search?page=0", listingHTML(
		[]string{"/documents/one", "two#frag", "https://Other.Test:443/documents/three"},
		"?page=1",
	))
	listing, err := ParseListing(page)
	require.NoError(t, err)
	assert.Equal(t, []string{
		testBase + "/documents/one",
		testBase + "/two",
		"https://other.test/documents/three",
	}, listing.RecordLinks)
	assert.Equal(t, testBase+"/search?page=1", listing.Next)
}

func TestParseListingUsesFinalURLForRelativeLinks(t *testing.T) {
	t.Parallel()

	page := Page{
		URL:      testBase + "/old",
		FinalURL: testBase + "/archive/search",
		Body:     []byte(listingHTML([]string{"doc"}, "")),
	}
	listing, err := ParseListing(page)
	require.NoError(t, err)
	assert.Equal(t, []string{testBase + "/archive/doc"}, listing.RecordLinks)
	assert.Empty(t, listing.Next)
}

func TestParseListingEmptyPage(t *testing.T) {
	t.Parallel()

	listing, err := ParseListing(htmlPage(testBase, "<html><body><p>No results</p></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, listing.RecordLinks)
	assert.Empty(t, listing.Next)
}

func TestParseListingRowWithoutLink(t *testing.T) {
	t.Parallel()

	body := `<table><tr class="odd"><td class="views-field-title">No link</td></tr></table>`
	_, err := ParseListing(htmlPage(testBase, body))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "record link", parseErr.Element)
}

func TestRecordParserExtractsAllFields(t *testing.T) {
	t.Parallel()

	s := defaultSpeech(4)
	s.city = "Tempe"
	url := testBase + "/documents/remarks-4"
	md, body, err := NewRecordParser(nil).Parse(htmlPage(url, recordHTML(s)))
	require.NoError(t, err)
	require.NoError(t, md.Validate())

	assert.Equal(t, Metadata{
		KeyPerson:   "Jane Doe",
		KeyDate:     "June 1, 2024",
		KeyState:    "Arizona",
		KeyCity:     "Tempe",
		KeyTitle:    "Remarks at a Rally 4 in Phoenix, Arizona",
		KeyCitation: "Jane Doe, Remarks 4 Online",
		KeyCategory: "Campaign Documents, Remarks",
		KeyURL:      url,
	}, md)
	assert.Equal(t, "Thank you all 4.", body)
}

func TestRecordParserFallsBackToTitleLocation(t *testing.T) {
	t.Parallel()

	s := speech{title: "Remarks in Dayton, Ohio"}
	md, _, err := NewRecordParser(nil).Parse(htmlPage(testBase+"/d", recordHTML(s)))
	require.NoError(t, err)
	assert.Equal(t, "Ohio", md[KeyState])
	assert.Equal(t, "Dayton", md[KeyCity])
	assert.Equal(t, UnknownValue, md[KeyPerson])
	assert.Equal(t, UnknownValue, md[KeyCategory])
}

func TestRecordParserMissingTitle(t *testing.T) {
	t.Parallel()

	_, _, err := NewRecordParser(nil).Parse(htmlPage(testBase+"/d", "<html><body><p>hi</p></body></html>"))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "title", parseErr.Element)
}

func TestRecordParserWithField(t *testing.T) {
	t.Parallel()

	base := NewRecordParser(nil)
	custom := base.WithField(KeyDate, func(_ *goquery.Document, _ string, soFar Metadata) string {
		return "dated " + soFar.Get(KeyTitle)
	})
	page := htmlPage(testBase+"/d", recordHTML(defaultSpeech(1)))

	md, _, err := custom.Parse(page)
	require.NoError(t, err)
	assert.Equal(t, "dated Remarks at a Rally 1 in Phoenix, Arizona", md[KeyDate])

	original, _, err := base.Parse(page)
	require.NoError(t, err)
	assert.Equal(t, "June 1, 2024", original[KeyDate])
}

type fixedLocation struct{}

func (fixedLocation) State(string) string        { return "Nowhere" }
func (fixedLocation) City(string, string) string { return "" }

func TestRecordParserCustomLocationParser(t *testing.T) {
	t.Parallel()

	md, _, err := NewRecordParser(fixedLocation{}).Parse(htmlPage(testBase+"/d", recordHTML(speech{title: "Remarks in Dayton, Ohio"})))
	require.NoError(t, err)
	assert.Equal(t, "Nowhere", md[KeyState])
	assert.Equal(t, UnknownValue, md[KeyCity])
}
