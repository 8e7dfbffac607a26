package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/parchmentlabs/recall/internal/domain"
	"github.com/parchmentlabs/recall/internal/embedding"
	"github.com/parchmentlabs/recall/internal/llm"
	"github.com/parchmentlabs/recall/internal/telemetry"
	"github.com/parchmentlabs/recall/internal/vector"
)

const (
	maxQueryLength  = 1000
	defaultTopK     = 3
	maxSnippetRunes = 300

	noDocumentsAnswer = "You have no documents in your knowledge base yet. Upload a document before asking questions."
	noMatchAnswer     = "None of your documents contain information relevant to this question."
)

// VectorSearcher retrieves the nearest chunks in a namespace.
type VectorSearcher interface {
	Search(ctx context.Context, namespace string, queryVector []float32, limit int) ([]vector.SearchHit, error)
}

// SourceChunk is one retrieved passage cited in an answer.
type SourceChunk struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}

type QueryResult struct {
	Answer  string        `json:"answer"`
	Sources []SourceChunk `json:"sources"`
}

// QueryService answers questions against a single user's documents. Retrieval
// never crosses namespaces; an empty library or an empty result set produces
// an informational answer without calling the language model.
type QueryService struct {
	docRepo    DocumentRepository
	embedder   embedding.Provider
	namespaces NamespaceProvisioner
	vectors    VectorSearcher
	completer  llm.CompletionClient
	topK       int
}

func NewQueryService(
	docRepo DocumentRepository,
	embedder embedding.Provider,
	namespaces NamespaceProvisioner,
	vectors VectorSearcher,
	completer llm.CompletionClient,
	topK int,
) *QueryService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &QueryService{
		docRepo:    docRepo,
		embedder:   embedder,
		namespaces: namespaces,
		vectors:    vectors,
		completer:  completer,
		topK:       topK,
	}
}

func (s *QueryService) Query(ctx context.Context, userID, question string) (*QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Query", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "query",
	})
	defer span.End()

	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuery
	}
	if utf8.RuneCountInString(question) > maxQueryLength {
		return nil, domain.ErrQueryTooLong
	}

	count, err := s.docRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return &QueryResult{Answer: noDocumentsAnswer, Sources: []SourceChunk{}}, nil
	}

	queryVectors, err := s.embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(queryVectors) != 1 {
		return nil, domain.NewEmbeddingProviderError(
			fmt.Errorf("expected 1 query vector, got %d", len(queryVectors)))
	}

	namespace := s.namespaces.NamespaceFor(userID)
	hits, err := s.vectors.Search(ctx, namespace, queryVectors[0], s.topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	hits = s.filterOwned(ctx, userID, namespace, hits)
	if len(hits) == 0 {
		return &QueryResult{Answer: noMatchAnswer, Sources: []SourceChunk{}}, nil
	}

	answer, err := s.completer.Complete(ctx, buildPrompt(question, hits))
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	sources := make([]SourceChunk, len(hits))
	for i, hit := range hits {
		sources[i] = SourceChunk{
			Text:   truncateRunes(hit.Payload.Text, maxSnippetRunes),
			Source: hit.Payload.Source,
			Score:  hit.Score,
		}
	}

	return &QueryResult{Answer: answer, Sources: sources}, nil
}

// filterOwned drops any hit whose payload names a different owner. The
// per-user namespace already guarantees this; a mismatch here means the
// namespace contains foreign data and is reported as an anomaly.
func (s *QueryService) filterOwned(ctx context.Context, userID, namespace string, hits []vector.SearchHit) []vector.SearchHit {
	owned := hits[:0]
	for _, hit := range hits {
		if hit.Payload.UserID != userID {
			log.Printf("query: dropped foreign chunk in namespace %s (owner %s, requester %s)",
				namespace, hit.Payload.UserID, userID)
			telemetry.CaptureMessage(ctx, fmt.Sprintf("foreign chunk in namespace %s", namespace))
			continue
		}
		owned = append(owned, hit)
	}
	return owned
}

func buildPrompt(question string, hits []vector.SearchHit) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant that answers questions using only the provided context.\n\nContext:\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "[%d] (from %s)\n%s\n\n", i+1, hit.Payload.Source, hit.Payload.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer using only the information in the context above. If the context does not contain enough information to answer, say so instead of guessing.")
	return b.String()
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
