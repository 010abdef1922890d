package arxiv

import (
	"strings"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.12345v2</id>
    <title>  A Study of Things  </title>
    <summary>An abstract about things.</summary>
    <published>2023-01-15T18:00:00Z</published>
    <updated>2023-01-16T18:00:00Z</updated>
    <link href="http://arxiv.org/abs/2301.12345v2" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2301.12345v2" rel="related" type="application/pdf"/>
    <author>
      <name>Jane Doe</name>
      <affiliation>Some University</affiliation>
    </author>
    <author>
      <name>John Smith</name>
    </author>
    <category term="cs.AI"/>
    <category term="cs.LG"/>
  </entry>
</feed>`

func TestParseFeedExtractsEntry(t *testing.T) {
	entries, err := ParseFeed([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.ArxivID != "2301.12345" {
		t.Fatalf("expected version-stripped id, got %q", e.ArxivID)
	}
	if e.Title != "A Study of Things" {
		t.Fatalf("expected trimmed title, got %q", e.Title)
	}
	if e.PDFURL != "http://arxiv.org/pdf/2301.12345v2" {
		t.Fatalf("expected pdf link from feed, got %q", e.PDFURL)
	}
	if len(e.Authors) != 2 || e.Authors[0].Affiliation != "Some University" {
		t.Fatalf("authors not parsed correctly: %+v", e.Authors)
	}
	if len(e.Categories) != 2 || e.Categories[0] != "cs.AI" {
		t.Fatalf("categories not parsed correctly: %+v", e.Categories)
	}
	wantPublished := time.Date(2023, 1, 15, 18, 0, 0, 0, time.UTC)
	if !e.Published.Equal(wantPublished) {
		t.Fatalf("published date mismatch: got %v want %v", e.Published, wantPublished)
	}
}

func TestPDFURLFallsBackWhenNoPDFLink(t *testing.T) {
	feedNoPDF := strings.Replace(sampleFeed,
		`<link href="http://arxiv.org/pdf/2301.12345v2" rel="related" type="application/pdf"/>`, "", 1)

	entries, err := ParseFeed([]byte(feedNoPDF))
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	got := entries[0].PDFURL
	want := "https://arxiv.org/pdf/2301.12345.pdf"
	if got != want {
		t.Fatalf("expected constructed pdf url %q, got %q", want, got)
	}
}

func TestIdFromURLStripsTrailingVersionOnly(t *testing.T) {
	cases := map[string]string{
		"http://arxiv.org/abs/2301.12345v1":  "2301.12345",
		"http://arxiv.org/abs/2301.12345v12": "2301.12345",
		"http://arxiv.org/abs/2301.12345":    "2301.12345",
		"http://arxiv.org/abs/hep-th/9901001v3": "hep-th/9901001",
	}
	for in, want := range cases {
		if got := idFromURL(in); got != want {
			t.Errorf("idFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildByIDURLEncodesCommaSeparatedIDs(t *testing.T) {
	got := BuildByIDURL([]string{"2301.12345", "2301.67890"})
	if !strings.Contains(got, "id_list=2301.12345%2C2301.67890") {
		t.Fatalf("expected encoded comma-joined id_list, got %q", got)
	}
}

func TestBuildSearchURLWithoutDateFilter(t *testing.T) {
	got := BuildSearchURL(SearchParams{Categories: []string{"cs.AI", "cs.LG"}, MaxResults: 50})
	if !strings.Contains(got, "search_query=") {
		t.Fatalf("expected search_query param, got %q", got)
	}
	if strings.Contains(got, "submittedDate%3A") {
		t.Fatalf("expected no date filter when none requested, got %q", got)
	}
	if !strings.Contains(got, "sortBy=submittedDate") || !strings.Contains(got, "sortOrder=descending") {
		t.Fatalf("expected sort params, got %q", got)
	}
}

func TestBuildSearchURLDaysBackAddsDateRange(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	got := BuildSearchURL(SearchParams{Categories: []string{"cs.AI"}, MaxResults: 10, DaysBack: 5, Now: now})
	if !strings.Contains(got, "submittedDate") {
		t.Fatalf("expected date filter, got %q", got)
	}
	if !strings.Contains(got, "20260105") || !strings.Contains(got, "20260110") {
		t.Fatalf("expected 5-day window boundaries, got %q", got)
	}
}

func TestBuildSearchURLExplicitDateRangeTakesPrecedenceOverDaysBack(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	got := BuildSearchURL(SearchParams{
		Categories: []string{"cs.AI"},
		MaxResults: 10,
		DaysBack:   5,
		DateFrom:   &from,
		Now:        now,
	})
	if !strings.Contains(got, "20250601") {
		t.Fatalf("expected explicit date_from to win over days_back, got %q", got)
	}
	if strings.Contains(got, "20260105") {
		t.Fatalf("expected days_back window to be ignored, got %q", got)
	}
}

func TestToPaperMapsEntryFields(t *testing.T) {
	entries, _ := ParseFeed([]byte(sampleFeed))
	p := ToPaper(entries[0])
	if p.ID != "2301.12345" || p.ArxivID != "2301.12345" {
		t.Fatalf("expected id/arxiv_id set from entry, got %+v", p)
	}
	if p.PrimaryCategory != "cs.AI" {
		t.Fatalf("expected first category as primary, got %q", p.PrimaryCategory)
	}
	if len(p.Categories) != 2 {
		t.Fatalf("expected categories copied, got %+v", p.Categories)
	}
}
