package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/parchmentlabs/recall/internal/domain"
)

// parseDocx extracts text from a Word document. A .docx file is a zip
// archive; the body text lives in word/document.xml as w:t runs grouped
// into w:p paragraphs.
func parseDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", domain.NewParseFailureError(path, err)
	}
	defer archive.Close()

	var docEntry *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docEntry = f
			break
		}
	}
	if docEntry == nil {
		return "", domain.NewParseFailureError(path, fmt.Errorf("word/document.xml not found in archive"))
	}

	rc, err := docEntry.Open()
	if err != nil {
		return "", domain.NewParseFailureError(path, err)
	}
	defer rc.Close()

	text, err := extractDocxText(rc)
	if err != nil {
		return "", domain.NewParseFailureError(path, err)
	}
	return text, nil
}

func extractDocxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var sb strings.Builder
	inTextRun := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document xml: %w", err)
		}

		switch tok := token.(type) {
		case xml.StartElement:
			if tok.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inTextRun = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inTextRun {
				sb.Write(tok)
			}
		}
	}

	return sb.String(), nil
}
