package localtext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

// Converter is the offline document-understanding fallback used when
// no remote parser is configured. It handles text-layer PDFs and UTF-8
// plain text; anything it cannot read is a ParseFailure, same contract
// as the remote service. The conversion mode is accepted but both
// modes behave identically here: there is no OCR locally.
type Converter struct{}

func New() *Converter {
	return &Converter{}
}

func (c *Converter) Normalize(_ context.Context, path string, _ domain.ConvertMode) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return c.normalizePDF(path)
	}
	return c.normalizePlaintext(path)
}

func (c *Converter) normalizePDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrParseFailure, "open pdf", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrParseFailure, "read pdf text layer", err)
	}

	var builder strings.Builder
	if _, err := io.Copy(&builder, plain); err != nil {
		return "", domain.WrapError(domain.ErrParseFailure, "read pdf text layer", err)
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", domain.WrapError(domain.ErrParseFailure, "read pdf text layer", errors.New("pdf has no extractable text layer"))
	}
	return text, nil
}

func (c *Converter) normalizePlaintext(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrParseFailure, "decode text", errors.New("document is not valid utf-8 text"))
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", domain.WrapError(domain.ErrParseFailure, "decode text", errors.New("document is empty"))
	}
	return text, nil
}
