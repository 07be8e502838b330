package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsPublisher/internal/ports"
)

// coverSelectors are tried in order; the first non-empty attribute wins.
var coverSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="og:image"]`, "content"},
	{`meta[property="og:image:url"]`, "content"},
	{`meta[name="twitter:image"]`, "content"},
	{`link[rel="image_src"]`, "href"},
	{"article img[src]", "src"},
}

// CoverFinder extracts a representative image from a source article page.
type CoverFinder struct {
	client *http.Client
}

var _ ports.CoverFinder = (*CoverFinder)(nil)

// NewCoverFinder wires an HTTP client; nil uses a client with a 20s timeout.
func NewCoverFinder(client *http.Client) *CoverFinder {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &CoverFinder{client: client}
}

// FindCover returns an absolute image URL, or "" when the page declares none.
func (f *CoverFinder) FindCover(ctx context.Context, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	doc, err := f.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}

	for _, c := range coverSelectors {
		val, ok := doc.Find(c.selector).First().Attr(c.attr)
		val = strings.TrimSpace(val)
		if !ok || val == "" {
			continue
		}
		ref, err := url.Parse(val)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String(), nil
	}
	return "", nil
}

func (f *CoverFinder) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsPublisher/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
