package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// UploadDocumentResponse mirrors the server's document representation.
type UploadDocumentResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalSize int64  `json:"original_size"`
	ChunkCount   int    `json:"chunk_count"`
	UploadedAt   string `json:"uploaded_at"`
}

// UploadAPIResponse represents the document ingestion response.
type UploadAPIResponse struct {
	Document  *UploadDocumentResponse `json:"document"`
	Duplicate bool                    `json:"duplicate"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document for ingestion",
		Long:  "Uploads a .pdf, .txt, .md or .docx file; the server chunks and indexes it for querying.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(args[0], outputJSON)
		},
	}

	cmd.Flags().BoolP("output", "o", false, "Output as JSON")

	return cmd
}

func runUpload(filePath string, outputJSON bool) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("cannot read file: %w", err)
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.PostFile("/v1/documents", filePath)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var uploadResp UploadAPIResponse
	if err := json.Unmarshal(resp.Data, &uploadResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(uploadResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	doc := uploadResp.Document
	if uploadResp.Duplicate {
		fmt.Printf("Already ingested: %s\n", doc.Filename)
	} else {
		fmt.Printf("Uploaded document: %s\n", doc.Filename)
	}
	fmt.Printf("ID: %s\n", doc.ID)
	fmt.Printf("Size: %d bytes\n", doc.OriginalSize)
	fmt.Printf("Chunks: %d\n", doc.ChunkCount)

	return nil
}
