// Package parser extracts raw text from uploaded documents based on their
// declared file type. Dispatch is purely on the declared type, never on
// content sniffing.
package parser

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/parchmentlabs/recall/internal/domain"
)

// FileType is a supported document type, matched against the upload's
// declared extension.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeText FileType = "txt"
	FileTypeDocx FileType = "docx"
)

// SupportedTypes returns the closed set of accepted file types.
func SupportedTypes() []string {
	return []string{string(FileTypePDF), string(FileTypeText), string(FileTypeDocx)}
}

// NormalizeType lowercases a declared type and strips a leading dot, so
// ".PDF" and "pdf" resolve identically.
func NormalizeType(declared string) FileType {
	return FileType(strings.ToLower(strings.TrimPrefix(declared, ".")))
}

// IsSupported reports whether the declared type is in the supported set.
func IsSupported(declared string) bool {
	switch NormalizeType(declared) {
	case FileTypePDF, FileTypeText, FileTypeDocx:
		return true
	}
	return false
}

// Parser extracts text from files on disk.
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// Parse extracts the full text of the file at path according to its declared
// type. An unsupported type is rejected with an INVALID_FILE_TYPE error; a
// file that cannot be decoded fails with PARSE_FAILURE and no partial text.
func (p *Parser) Parse(path string, declaredType string) (string, error) {
	switch NormalizeType(declaredType) {
	case FileTypePDF:
		return parsePDF(path)
	case FileTypeText:
		return parseText(path)
	case FileTypeDocx:
		return parseDocx(path)
	default:
		return "", domain.NewInvalidFileTypeError(declaredType, SupportedTypes())
	}
}

func parseText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewParseFailureError(path, err)
	}
	if !utf8.Valid(data) {
		// Replace invalid sequences rather than failing: plain-text uploads
		// with stray bytes are common and the text is still usable.
		return strings.ToValidUTF8(string(data), "�"), nil
	}
	return string(data), nil
}
