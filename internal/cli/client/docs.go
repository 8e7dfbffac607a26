package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// DocsItemResponse represents a single document in the list response.
type DocsItemResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalSize int64  `json:"original_size"`
	ChunkCount   int    `json:"chunk_count"`
	UploadedAt   string `json:"uploaded_at"`
}

// DocsAPIResponse represents the document list API response.
type DocsAPIResponse struct {
	Documents  []DocsItemResponse `json:"documents"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

// DocsCmd creates the docs command.
func DocsCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List your uploaded documents",
		Long:  "Lists your documents newest first with cursor pagination.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocs(limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().BoolP("output", "o", false, "Output as JSON")

	return cmd
}

func runDocs(limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	path := "/v1/documents"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var docsResp DocsAPIResponse
	if err := json.Unmarshal(resp.Data, &docsResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(docsResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(docsResp.Documents) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("Found %d documents:\n\n", len(docsResp.Documents))
	for i, doc := range docsResp.Documents {
		fmt.Printf("%d. %s\n", i+1, doc.Filename)
		fmt.Printf("   Size: %d bytes, Chunks: %d\n", doc.OriginalSize, doc.ChunkCount)
		fmt.Printf("   Uploaded: %s\n", doc.UploadedAt)
		fmt.Printf("   ID: %s\n", doc.ID)
		if i < len(docsResp.Documents)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if docsResp.HasMore && docsResp.NextCursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", docsResp.NextCursor)
	}

	return nil
}
