// Package arxiv implements the bibliographic metadata fetch (spec §6
// "ArXiv wire"): URL construction for by-ID and by-search queries, Atom/XML
// feed parsing, and entry-to-Paper mapping. Atom feed struct shapes and the
// id-from-URL + version-stripping convention are grounded on
// other_examples/acd361d3_Chibikuri-daily-feed__internal-fetcher-arxiv.go.go;
// the id_list-vs-search_query URL split, date-range precedence rule, and
// pdf-link fallback are cross-checked against
// original_source/src-tauri/src/arxiv.rs.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/paperfuse/core/internal/consts"
	"github.com/paperfuse/core/internal/types"
)

// feed mirrors the Atom response shape for arxiv's query endpoint.
type feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []entry  `xml:"entry"`
}

type entry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Links     []link     `xml:"link"`
	Authors   []author   `xml:"author"`
	Categories []category `xml:"category"`
}

type link struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
	Rel  string `xml:"rel,attr"`
}

type author struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

type category struct {
	Term string `xml:"term,attr"`
}

// Entry is the parsed, caller-facing form of one Atom <entry>.
type Entry struct {
	ArxivID     string
	Title       string
	Summary     string
	Published   time.Time
	SourceURL   string
	PDFURL      string
	Authors     []types.Author
	Categories  []string
}

var versionSuffix = regexp.MustCompile(`v\d+$`)

// idFromURL extracts the stable arxiv id from an Atom <id> URL (e.g.
// "http://arxiv.org/abs/2301.12345v1" -> "2301.12345"), per spec §6: take
// the last path segment, then strip any trailing "v<digits>".
func idFromURL(idURL string) string {
	parts := strings.Split(idURL, "/")
	last := parts[len(parts)-1]
	return versionSuffix.ReplaceAllString(last, "")
}

func pdfURLFor(e entry, arxivID string) string {
	for _, l := range e.Links {
		if l.Type == "application/pdf" {
			return l.Href
		}
	}
	return fmt.Sprintf("%s/pdf/%s.pdf", consts.ArxivBaseURL, arxivID)
}

func toEntry(e entry) (Entry, error) {
	published, err := time.Parse(time.RFC3339, e.Published)
	if err != nil {
		return Entry{}, fmt.Errorf("parse published date %q: %w", e.Published, err)
	}

	arxivID := idFromURL(e.ID)
	authors := make([]types.Author, len(e.Authors))
	for i, a := range e.Authors {
		authors[i] = types.Author{Name: strings.TrimSpace(a.Name), Affiliation: strings.TrimSpace(a.Affiliation)}
	}
	categories := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		categories[i] = c.Term
	}

	return Entry{
		ArxivID:    arxivID,
		Title:      strings.TrimSpace(e.Title),
		Summary:    strings.TrimSpace(e.Summary),
		Published:  published,
		SourceURL:  e.ID,
		PDFURL:     pdfURLFor(e, arxivID),
		Authors:    authors,
		Categories: categories,
	}, nil
}

// BuildByIDURL constructs the id_list query variant for fetch-by-id mode.
func BuildByIDURL(ids []string) string {
	return fmt.Sprintf("%s?id_list=%s", consts.ArxivAPIBaseURL, url.QueryEscape(strings.Join(ids, ",")))
}

// SearchParams configures BuildSearchURL. DateFrom/DateTo take precedence
// over DaysBack when set (spec §6 "Date range prefers explicit date_from/
// date_to over days_back").
type SearchParams struct {
	Categories []string
	MaxResults int
	DaysBack   int
	DateFrom   *time.Time
	DateTo     *time.Time
	Now        time.Time // injected for deterministic tests; zero means time.Now()
}

func (p SearchParams) now() time.Time {
	if p.Now.IsZero() {
		return time.Now().UTC()
	}
	return p.Now
}

// BuildSearchURL constructs the category-search query variant, per spec §6:
// `(cat:C1 OR cat:C2 ...) [AND submittedDate:[YYYYMMDD0000 TO YYYYMMDD2359]]`.
func BuildSearchURL(p SearchParams) string {
	terms := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		terms[i] = "cat:" + c
	}
	query := "(" + strings.Join(terms, " OR ") + ")"

	now := p.now()
	switch {
	case p.DateFrom != nil || p.DateTo != nil:
		from := "19910101"
		if p.DateFrom != nil {
			from = p.DateFrom.Format("20060102")
		}
		to := now.Format("20060102")
		if p.DateTo != nil {
			to = p.DateTo.Format("20060102")
		}
		query = fmt.Sprintf("%s AND submittedDate:[%s0000 TO %s2359]", query, from, to)
	case p.DaysBack > 0:
		from := now.AddDate(0, 0, -p.DaysBack).Format("20060102")
		to := now.Format("20060102")
		query = fmt.Sprintf("%s AND submittedDate:[%s0000 TO %s2359]", query, from, to)
	}

	v := url.Values{}
	v.Set("search_query", query)
	v.Set("max_results", fmt.Sprintf("%d", p.MaxResults))
	v.Set("sortBy", "submittedDate")
	v.Set("sortOrder", "descending")
	return consts.ArxivAPIBaseURL + "?" + v.Encode()
}

// Client fetches and parses arxiv metadata over HTTP.
type Client struct {
	http *http.Client
}

// NewClient builds a Client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = time.Duration(consts.DefaultRequestTimeoutSecs) * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// FetchByIDs retrieves metadata for specific arxiv ids.
func (c *Client) FetchByIDs(ctx context.Context, ids []string) ([]Entry, error) {
	return c.fetch(ctx, BuildByIDURL(ids))
}

// FetchBySearch retrieves metadata matching a category/date search.
func (c *Client) FetchBySearch(ctx context.Context, p SearchParams) ([]Entry, error) {
	return c.fetch(ctx, BuildSearchURL(p))
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: build request: %w", err)
	}
	req.Header.Set("User-Agent", "PaperFuse/1.0 (https://github.com/paperfuse)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: read response: %w", err)
	}

	return ParseFeed(body)
}

// ParseFeed parses a raw Atom feed response into Entries (spec §6 "The
// parser must extract the stable id..."). Exposed standalone for testing
// without a live HTTP round trip.
func ParseFeed(body []byte) ([]Entry, error) {
	var f feed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("arxiv: parse XML: %w", err)
	}

	entries := make([]Entry, 0, len(f.Entries))
	for _, e := range f.Entries {
		parsed, err := toEntry(e)
		if err != nil {
			return nil, err
		}
		entries = append(entries, parsed)
	}
	return entries, nil
}

// ToPaper maps a fetched Entry to a new Paper record with empty enrichment,
// used as the starting point in fetch-manager's per-entry processing
// (spec §4.G.2 step 2).
func ToPaper(e Entry) types.Paper {
	var primary string
	if len(e.Categories) > 0 {
		primary = e.Categories[0]
	}
	return types.Paper{
		ID:              e.ArxivID,
		ArxivID:         e.ArxivID,
		Title:           e.Title,
		Authors:         e.Authors,
		Summary:         e.Summary,
		PublishedDate:   e.Published,
		SourceURL:       e.SourceURL,
		PDFURL:          e.PDFURL,
		PrimaryCategory: primary,
		Categories:      e.Categories,
	}
}
