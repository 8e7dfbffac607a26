package parser

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/parchmentlabs/recall/internal/domain"
)

func parsePDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", domain.NewParseFailureError(path, err)
	}
	defer f.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", domain.NewParseFailureError(path, fmt.Errorf("failed to extract text: %w", err))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", domain.NewParseFailureError(path, err)
	}

	return buf.String(), nil
}
