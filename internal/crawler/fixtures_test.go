package crawler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
)

const testBase = "https://archive.test"

type stubFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (Page, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return Page{}, err
	}
	body, ok := f.pages[url]
	if !ok {
		return Page{}, &NetworkError{URL: url, StatusCode: 404, Err: errors.New("not found")}
	}
	return Page{URL: url, FinalURL: url, StatusCode: 200, Body: []byte(body), Duration: time.Millisecond}, nil
}

func (f *stubFetcher) fetched(url string) bool {
	for _, c := range f.calls {
		if c == url {
			return true
		}
	}
	return false
}

type speech struct {
	title      string
	date       string
	person     string
	citation   string
	state      string
	city       string
	categories []string
	body       string
	noBody     bool
}

func listingHTML(links []string, next string) string {
	var b strings.Builder
	b.WriteString("<html><body><table><tbody>")
	for i, l := range links {
		class := "odd"
		if i%2 == 1 {
			class = "even"
		}
		fmt.Fprintf(&b,
			`<tr class="%s"><td class="views-field-date">June 1, 2024</td><td class="views-field-title"><a href="%s">Doc %d</a></td></tr>`,
			class, html.EscapeString(l), i+1)
	}
	b.WriteString("</tbody></table>")
	if next != "" {
		fmt.Fprintf(&b, `<ul class="pager"><li><a title="Go to next page" href="%s">next</a></li></ul>`, html.EscapeString(next))
	}
	b.WriteString("</body></html>")
	return b.String()
}

func recordHTML(s speech) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if len(s.categories) > 0 {
		b.WriteString(`<div class="menu-block-wrapper menu-block-7 menu-name-menu-doc-cat-menu parent-mlid-0 menu-level-1"><ul>`)
		for _, c := range s.categories {
			fmt.Fprintf(&b, `<li><a class="dropdown-toggle" title="%s">%s</a></li>`, html.EscapeString(c), html.EscapeString(c))
		}
		b.WriteString(`</ul></div>`)
	}
	if s.person != "" {
		fmt.Fprintf(&b, `<h3 class="diet-title"><a href="/people/x">%s</a></h3>`, html.EscapeString(s.person))
	}
	if s.title != "" {
		fmt.Fprintf(&b, "<div class=\"field-ds-doc-title\"><h1>\n  %s\n</h1></div>", html.EscapeString(s.title))
	}
	if s.date != "" {
		fmt.Fprintf(&b, `<div class="field-docs-start-date-time"><span class="date-display-single">%s</span></div>`, html.EscapeString(s.date))
	}
	if s.state != "" {
		fmt.Fprintf(&b, "<div class=\"field-spot-state\">\n%s\n</div>", html.EscapeString(s.state))
	}
	if s.city != "" {
		fmt.Fprintf(&b, `<div class="field-spot-city">%s</div>`, html.EscapeString(s.city))
	}
	if !s.noBody {
		fmt.Fprintf(&b, `<div class="field-docs-content"><p>%s</p></div>`, html.EscapeString(s.body))
	}
	if s.citation != "" {
		fmt.Fprintf(&b, `<p class="ucsbapp_citation">%s</p>`, html.EscapeString(s.citation))
	}
	b.WriteString("</body></html>")
	return b.String()
}

func defaultSpeech(n int) speech {
	return speech{
		title:      fmt.Sprintf("Remarks at a Rally %d in Phoenix, Arizona", n),
		date:       "June 1, 2024",
		person:     "Jane Doe",
		citation:   fmt.Sprintf("Jane Doe, Remarks %d Online", n),
		state:      "Arizona",
		categories: []string{"Campaign Documents", "Remarks"},
		body:       fmt.Sprintf("Thank you all %d.", n),
	}
}

// site registers a listing of record pages under testBase and returns the
// listing URL plus the absolute record URLs in order.
func (f *stubFetcher) site(listingPath string, speeches []speech, next string) (string, []string) {
	listingURL := testBase + listingPath
	links := make([]string, 0, len(speeches))
	abs := make([]string, 0, len(speeches))
	for i, s := range speeches {
		path := fmt.Sprintf("/documents%s-%d", strings.ReplaceAll(listingPath, "/", "-"), i+1)
		path = strings.ReplaceAll(path, "?", "-")
		path = strings.ReplaceAll(path, "=", "-")
		links = append(links, path)
		abs = append(abs, testBase+path)
		f.pages[testBase+path] = recordHTML(s)
	}
	f.pages[listingURL] = listingHTML(links, next)
	return listingURL, abs
}

type sliceSink struct {
	records []Record
	failAt  int
}

func (s *sliceSink) Append(_ context.Context, r Record) error {
	if s.failAt > 0 && len(s.records)+1 == s.failAt {
		return errors.New("disk full")
	}
	s.records = append(s.records, r)
	return nil
}

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) { return "run-test", nil }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}
