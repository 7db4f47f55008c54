package docparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/resilience"
)

// Client talks to the remote document-understanding service. The
// service owns the OCR/layout intelligence; this adapter only ships
// bytes, selects the quality mode and maps failure classes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Normalize(ctx context.Context, path string, mode domain.ConvertMode) (string, error) {
	var text string
	call := func(ctx context.Context) error {
		var err error
		text, err = c.parseOnce(ctx, path, mode)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "docparse.parse", call, classifyParserError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapParserError("normalize document", err)
	}
	return text, nil
}

func (c *Client) parseOnce(ctx context.Context, path string, mode domain.ConvertMode) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrIOFailure, "open document", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("mode", string(mode)); err != nil {
		return "", fmt.Errorf("write mode field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", domain.WrapError(domain.ErrIOFailure, "read document", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/parse", &body)
	if err != nil {
		return "", fmt.Errorf("create parse request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("parser request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode parse response: %w", err)
	}
	return parsed.Text, nil
}

type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "parser status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("parser status: %s", e.Status)
	}
	return fmt.Sprintf("parser status: %s: %s", e.Status, e.Body)
}
