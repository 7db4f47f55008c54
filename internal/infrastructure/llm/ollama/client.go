package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/resilience"
)

// Client wraps an Ollama-compatible generation endpoint. Both the
// categorization and the field-extraction collaborators ride on the
// same JSON-mode generate call; they differ only in prompt and in how
// the response is interpreted.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Categorizer assigns one of the known filing categories.
type Categorizer struct {
	client *Client
}

func NewCategorizer(client *Client) *Categorizer {
	return &Categorizer{client: client}
}

func (c *Categorizer) Classify(ctx context.Context, text string, rules []domain.CategoryRule) (domain.Categorization, error) {
	respText, err := c.client.generateJSON(ctx, "classify", buildClassifyPrompt(text, rules))
	if err != nil {
		return domain.Categorization{}, wrapCollaboratorError(domain.ErrClassificationFailure, "classify filing", err)
	}

	var parsed struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &parsed); err != nil {
		return domain.Categorization{}, domain.WrapError(domain.ErrClassificationFailure, "parse classification json", err)
	}

	category, err := domain.ParseFilingCategory(parsed.Category)
	if err != nil {
		return domain.Categorization{}, domain.WrapError(domain.ErrClassificationFailure, "parse classification json", err)
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	return domain.Categorization{Category: category, Confidence: parsed.Confidence}, nil
}

// Extractor runs one extraction schema against normalized text. The
// model is told every field is optional; whatever JSON object comes
// back is the best-effort result and missing values stay null.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, text string, schema domain.ExtractionSchema) (json.RawMessage, error) {
	respText, err := e.client.generateJSON(ctx, "extract", buildExtractPrompt(text, schema))
	if err != nil {
		return nil, wrapCollaboratorError(domain.ErrExtractionFailure, "extract fields", err)
	}

	raw := json.RawMessage(extractJSONObject(respText))
	if !json.Valid(raw) {
		return nil, domain.WrapError(domain.ErrExtractionFailure, "parse extraction json", errors.New("model returned invalid json"))
	}
	return raw, nil
}

func (c *Client) generateJSON(ctx context.Context, operation, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, fmt.Sprintf("llm.%s", operation), call, classifyLLMError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
