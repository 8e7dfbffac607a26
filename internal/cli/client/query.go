package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryAPIRequest represents the query API request.
type QueryAPIRequest struct {
	Question string `json:"question"`
}

// QuerySourceResponse represents a single source chunk in the query response.
type QuerySourceResponse struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}

// QueryAPIResponse represents the query API response.
type QueryAPIResponse struct {
	Answer  string                `json:"answer"`
	Sources []QuerySourceResponse `json:"sources"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question against your documents",
		Long:  "Retrieves the most relevant chunks from your documents and generates a grounded answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runQuery(args[0], outputJSON)
		},
	}

	cmd.Flags().BoolP("output", "o", false, "Output as JSON")

	return cmd
}

func runQuery(question string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/query", QueryAPIRequest{Question: question})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var queryResp QueryAPIResponse
	if err := json.Unmarshal(resp.Data, &queryResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(queryResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(queryResp.Answer)

	if len(queryResp.Sources) > 0 {
		fmt.Printf("\nSources:\n")
		for i, src := range queryResp.Sources {
			fmt.Printf("%d. %s (score: %.3f)\n", i+1, src.Source, src.Score)
			fmt.Printf("   %s\n", src.Text)
			if i < len(queryResp.Sources)-1 {
				fmt.Println(strings.Repeat("-", 40))
			}
		}
	}

	return nil
}
