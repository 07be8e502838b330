package gnews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

const (
	maxQueryLength = 100
	maxQueryWords  = 10
	minQueryRunes  = 3
)

var (
	queryNoise = regexp.MustCompile(`[,"':;!?()\[\]{}<>/\\|@#$%^&*=+~]`)
	spaces     = regexp.MustCompile(`\s+`)
)

// Client implements ports.Aggregator over the GNews search API.
type Client struct {
	searchURL    string
	apiKey       string
	defaultTopic string
	httpClient   *http.Client
}

var _ ports.Aggregator = (*Client)(nil)

// NewClient builds a client from configuration; defaultTopic replaces unusable queries.
func NewClient(cfg config.GNewsConfig, defaultTopic string) *Client {
	return &Client{
		searchURL:    cfg.SearchURL,
		apiKey:       cfg.APIKey,
		defaultTopic: defaultTopic,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

type searchResponse struct {
	TotalArticles int `json:"totalArticles"`
	Articles      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		Image       string `json:"image"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"source"`
	} `json:"articles"`
}

// Search queries the aggregator; an empty result is not an error.
func (c *Client) Search(ctx context.Context, q ports.SearchQuery) ([]domain.Source, error) {
	if c.searchURL == "" || c.apiKey == "" {
		return nil, fmt.Errorf("gnews client misconfigured")
	}

	u, err := url.Parse(c.searchURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	params := u.Query()
	params.Set("q", SanitizeQuery(q.Query, c.defaultTopic))
	if q.Language != "" {
		params.Set("lang", q.Language)
	}
	if q.Region != "" {
		params.Set("country", q.Region)
	}
	if q.MaxResults > 0 {
		params.Set("max", strconv.Itoa(q.MaxResults))
	}
	params.Set("apikey", c.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &domain.HTTPStatusError{Service: "gnews", Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	sources := make([]domain.Source, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		sources = append(sources, domain.Source{
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			URL:         a.URL,
			Image:       a.Image,
			SourceName:  a.Source.Name,
			PublishedAt: published,
		})
	}
	return sources, nil
}

// SanitizeQuery strips search operators the aggregator rejects.
// Overlong queries keep their first ten words; unusable ones fall back to defaultTopic.
func SanitizeQuery(query, defaultTopic string) string {
	query = strings.TrimSpace(query)
	if query == "" || query == "*" {
		return defaultTopic
	}

	clean := queryNoise.ReplaceAllString(query, " ")
	clean = strings.TrimSpace(spaces.ReplaceAllString(clean, " "))

	if len([]rune(clean)) > maxQueryLength {
		words := strings.Fields(clean)
		if len(words) > maxQueryWords {
			words = words[:maxQueryWords]
		}
		clean = strings.Join(words, " ")
	}

	if len([]rune(clean)) < minQueryRunes {
		return defaultTopic
	}
	return clean
}
