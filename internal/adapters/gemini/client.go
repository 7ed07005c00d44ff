package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reputation_hub/internal/adapters/restclient"
	"reputation_hub/internal/domain"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var errEmptyCandidate = errors.New("gemini: empty candidate")

// Client classifies reviews and drafts replies through generateContent.
// Without an API key every call fails with domain.ErrClassifierUnavailable.
type Client struct {
	rc    *restclient.Client
	base  string
	model string
	key   string
}

func New(base, key, model string, rps int) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	rc := restclient.New("gemini", &http.Client{Timeout: 30 * time.Second}, rps)
	if key != "" {
		rc.SetHeader("x-goog-api-key", key)
	}
	return &Client{rc: rc, base: strings.TrimSuffix(base, "/"), model: model, key: key}
}

const classifyPrompt = `Analyze the following property review and return a JSON object with these fields:
- category: one of "maintenance", "staff", "cleanliness", "amenities", "general".
- sentiment: "positive", "neutral" or "negative".
- isActionable: boolean, true if the review mentions something that needs fixing or specific attention.
- summary: a very brief (3-5 words) summary of the main point.

Review: %q

Return ONLY the raw JSON object, no markdown.`

const draftPrompt = `Write a professional, empathetic and concise response to a property review from a resident named %q.

Review content: %q

Address the specific points and thank them. If the review is negative, offer a way to resolve the issue. Keep it under 50 words.`

type analysisWire struct {
	Category     string `json:"category"`
	Sentiment    string `json:"sentiment"`
	IsActionable bool   `json:"isActionable"`
	Summary      string `json:"summary"`
}

func (c *Client) Classify(ctx context.Context, content string) (domain.ReviewAnalysis, error) {
	text, err := c.generate(ctx, fmt.Sprintf(classifyPrompt, content), true)
	if err != nil {
		return domain.ReviewAnalysis{}, err
	}
	var w analysisWire
	if err := json.Unmarshal([]byte(stripFences(text)), &w); err != nil {
		return domain.ReviewAnalysis{}, fmt.Errorf("gemini: unparsable analysis: %w", err)
	}
	summary := strings.TrimSpace(w.Summary)
	if summary == "" {
		return domain.ReviewAnalysis{}, errors.New("gemini: analysis without summary")
	}
	return domain.ReviewAnalysis{
		Category:   normalizeCategory(w.Category),
		Sentiment:  normalizeSentiment(w.Sentiment),
		Actionable: w.IsActionable,
		Summary:    summary,
	}, nil
}

func (c *Client) DraftReply(ctx context.Context, content, author string) (string, error) {
	text, err := c.generate(ctx, fmt.Sprintf(draftPrompt, author, content), false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

/********** wire **********/

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, prompt string, jsonOut bool) (string, error) {
	if c.key == "" {
		return "", domain.ErrClassifierUnavailable
	}
	req := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
	if jsonOut {
		req.GenerationConfig = &generationConfig{ResponseMimeType: "application/json"}
	}

	var resp generateResponse
	err := c.rc.Do(ctx, restclient.Request{
		Method:   http.MethodPost,
		URL:      c.base + "/models/" + url.PathEscape(c.model) + ":generateContent",
		Endpoint: "generate_content",
		Body:     req,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errEmptyCandidate
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errEmptyCandidate
	}
	return b.String(), nil
}

// stripFences removes a markdown code fence the model sometimes adds.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func normalizeCategory(s string) domain.Category {
	switch c := domain.Category(strings.ToLower(strings.TrimSpace(s))); c {
	case domain.CategoryMaintenance, domain.CategoryStaff, domain.CategoryCleanliness, domain.CategoryAmenities:
		return c
	}
	return domain.CategoryGeneral
}

func normalizeSentiment(s string) domain.Sentiment {
	switch v := domain.Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case domain.SentimentPositive, domain.SentimentNegative:
		return v
	}
	return domain.SentimentNeutral
}
