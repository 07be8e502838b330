package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

// Client implements ports.Site over the WordPress REST API.
type Client struct {
	siteURL    string
	username   string
	password   string
	sanitizer  *bluemonday.Policy
	httpClient *http.Client
}

var _ ports.Site = (*Client)(nil)

// NewClient authenticates with an application password.
func NewClient(cfg config.WordPressConfig) *Client {
	return &Client{
		siteURL:    strings.TrimRight(cfg.SiteURL, "/"),
		username:   cfg.Username,
		password:   cfg.AppPassword,
		sanitizer:  bluemonday.UGCPolicy(),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type postRequest struct {
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	Excerpt       string         `json:"excerpt"`
	Status        string         `json:"status"`
	Categories    []int64        `json:"categories,omitempty"`
	Meta          map[string]any `json:"meta"`
	FeaturedMedia int64          `json:"featured_media,omitempty"`
}

// UploadImage stores a JPEG in the media library and returns its id.
func (c *Client) UploadImage(ctx context.Context, data []byte, filename string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/wp-json/wp/v2/media", bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	req.Header.Set("Content-Type", "image/jpeg")

	var media struct {
		ID int64 `json:"id"`
	}
	if err := c.do(req, "upload media", &media); err != nil {
		return 0, err
	}
	return media.ID, nil
}

// CreatePost publishes the article; mediaID 0 means no featured image.
func (c *Client) CreatePost(ctx context.Context, article domain.Article, mediaID int64) (domain.SitePost, error) {
	payload := postRequest{
		Title:         article.Title,
		Content:       c.sanitizer.Sanitize(article.Content),
		Excerpt:       article.Excerpt,
		Status:        "publish",
		Meta:          map[string]any{"seo_description": article.SEODescription},
		FeaturedMedia: mediaID,
	}
	if article.CategoryID > 0 {
		payload.Categories = []int64{article.CategoryID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.SitePost{}, fmt.Errorf("marshal post: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/wp-json/wp/v2/posts", bytes.NewReader(body))
	if err != nil {
		return domain.SitePost{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var post domain.SitePost
	if err := c.do(req, "create post", &post); err != nil {
		return domain.SitePost{}, err
	}
	return post, nil
}

// DeletePost removes a post permanently; ok is true only on HTTP 200.
func (c *Client) DeletePost(ctx context.Context, postID int64) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/wp-json/wp/v2/posts/%d?force=true", postID), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("delete post %d: %w", postID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, statusError("delete post", resp)
	}
	return true, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.siteURL == "" || c.username == "" || c.password == "" {
		return nil, fmt.Errorf("wordpress client misconfigured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.siteURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &domain.HTTPStatusError{
		Service: "wordpress " + op,
		Status:  resp.Status,
		Body:    strings.TrimSpace(string(raw)),
	}
}
