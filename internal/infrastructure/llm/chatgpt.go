package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/ports"
)

const (
	maxPromptSources     = 10
	generateTemperature  = 0.7
	translateTemperature = 0.3
	translateMaxTokens   = 2000
)

const defaultSystemPrompt = `Ти — журналіст українського медіа "Спільно".
На основі наданих джерел створи оригінальну статтю українською.

Вимоги:
1. Заголовок: 50-70 символів, SEO-оптимізований
2. Категорія: визнач ОДНУ з [У світі, Вдома, Історії, Наші справи, Поради, Біль]
3. Короткий опис: 120-160 символів
4. Контент: HTML з тегами <h2>, <h3>, <p>, <strong>, <ul>, <li>
   Довжина: 1500-2500 слів
   Стиль: інформативний, доступний
5. SEO-опис: 150-160 символів

ВАЖЛИВО:
- Використовуй ТІЛЬКИ HTML теги (НЕ Markdown)
- НЕ копіюй текст дослівно
- Пиши природньою українською

Формат відповіді (JSON):
{
  "title": "...",
  "category": "У світі",
  "excerpt": "...",
  "content": "<p>...</p>",
  "seo_description": "..."
}`

const translatorPrompt = "Ти професійний перекладач. Перекладай точно та природньо на українську мову."

// ChatGPTClient implements ports.Rewriter backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	log          *slog.Logger
}

var _ ports.Rewriter = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.OpenAIConfig, log *slog.Logger) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		log: logging.OrDiscard(log),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for a structured article built from the sources.
func (c *ChatGPTClient) Generate(ctx context.Context, sources []domain.Source) (domain.Article, error) {
	content, err := c.complete(ctx, completionRequest{
		Messages: []message{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: buildArticlePrompt(sources)},
		},
		Temperature:    generateTemperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return domain.Article{}, err
	}
	return parseArticle(content)
}

// Translate renders text in Ukrainian; any failure returns text unchanged.
func (c *ChatGPTClient) Translate(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	prompt := "Переклади наступний текст на українську мову.\n" +
		"Зберігай природність та стиль оригіналу.\n" +
		"Повертай ТІЛЬКИ переклад без додаткових коментарів.\n\n" +
		"Текст:\n" + text

	out, err := c.complete(ctx, completionRequest{
		Messages: []message{
			{Role: "system", Content: translatorPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: translateTemperature,
		MaxTokens:   translateMaxTokens,
	})
	if err != nil {
		c.log.Warn("translation failed", "error", err)
		return text
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return text
	}
	return out
}

func (c *ChatGPTClient) complete(ctx context.Context, payload completionRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}
	payload.Model = c.model

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &domain.HTTPStatusError{Service: "chatgpt", Status: resp.Status, Body: strings.TrimSpace(string(raw))}
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

func buildArticlePrompt(sources []domain.Source) string {
	used := sources
	if len(used) > maxPromptSources {
		used = used[:maxPromptSources]
	}

	blocks := make([]string, 0, len(used))
	for i, s := range used {
		name := s.SourceName
		if name == "" {
			name = "Unknown"
		}
		blocks = append(blocks, fmt.Sprintf("Джерело %d (%s):\nЗаголовок: %s\nОпис: %s", i+1, name, s.Title, s.Description))
	}

	return fmt.Sprintf("На основі цих %d джерел напиши статтю українською:\n\n%s\n\nВідповідай ТІЛЬКИ валідним JSON.",
		len(sources), strings.Join(blocks, "\n\n"))
}

// parseArticle decodes the model's JSON reply; every required key must be present.
func parseArticle(content string) (domain.Article, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return domain.Article{}, fmt.Errorf("%w: %v", domain.ErrMalformedArticle, err)
	}
	for _, key := range domain.RequiredFields {
		if _, ok := fields[key]; !ok {
			return domain.Article{}, fmt.Errorf("%w: missing %s", domain.ErrMalformedArticle, key)
		}
	}

	var article domain.Article
	if err := json.Unmarshal([]byte(content), &article); err != nil {
		return domain.Article{}, fmt.Errorf("%w: %v", domain.ErrMalformedArticle, err)
	}
	article.CategoryID = 0
	article.ImageURL = ""
	return article, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}
