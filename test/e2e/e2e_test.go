//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `The aurora station logbook records geomagnetic readings each evening. Operators archive the solar wind measurements in the vault.
The zephyr turbine prototype reached quindecim velocity during the autumn trial. Engineer Malloy recorded the flywheel resonance in her notebook.
Harbor dredging resumed after the sediment survey. The pilot boats charted the channel depth near the breakwater every morning.
`

type documentPayload struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalSize int64  `json:"original_size"`
	ChunkCount   int    `json:"chunk_count"`
	UploadedAt   string `json:"uploaded_at"`
}

type ingestPayload struct {
	Document  *documentPayload `json:"document"`
	Duplicate bool             `json:"duplicate"`
}

type listPayload struct {
	Documents  []*documentPayload `json:"documents"`
	NextCursor string             `json:"next_cursor"`
	HasMore    bool               `json:"has_more"`
}

type queryPayload struct {
	Answer  string `json:"answer"`
	Sources []struct {
		Text   string  `json:"text"`
		Source string  `json:"source"`
		Score  float32 `json:"score"`
	} `json:"sources"`
}

func TestUploadAndQueryFlow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("flow@example.com")

	resp, err := env.Upload("notes.txt", []byte(testDocument), env.Token)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "error: %s", resp.Error)

	var ingest ingestPayload
	require.NoError(t, json.Unmarshal(resp.Data, &ingest))
	require.NotNil(t, ingest.Document)
	assert.False(t, ingest.Duplicate)
	assert.Equal(t, "notes.txt", ingest.Document.Filename)
	assert.Equal(t, int64(len(testDocument)), ingest.Document.OriginalSize)
	assert.GreaterOrEqual(t, ingest.Document.ChunkCount, 2)

	resp, err = env.Post("/v1/query", map[string]string{
		"question": "What velocity did the zephyr turbine prototype reach during the autumn trial?",
	}, env.Token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "error: %s", resp.Error)

	var query queryPayload
	require.NoError(t, json.Unmarshal(resp.Data, &query))
	assert.Equal(t, "stub answer", query.Answer)
	require.NotEmpty(t, query.Sources)

	top := query.Sources[0]
	assert.Contains(t, top.Text, "zephyr turbine prototype")
	assert.Equal(t, "notes.txt", top.Source)

	// The generation prompt must carry the retrieved chunk
	require.NotEmpty(t, env.Completer.prompts)
	lastPrompt := env.Completer.prompts[len(env.Completer.prompts)-1]
	assert.Contains(t, lastPrompt, "zephyr turbine prototype")
	assert.Contains(t, lastPrompt, "notes.txt")
}

func TestQueryWithoutDocuments(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("empty@example.com")

	resp, err := env.Post("/v1/query", map[string]string{
		"question": "What does the logbook say?",
	}, env.Token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "error: %s", resp.Error)

	var query queryPayload
	require.NoError(t, json.Unmarshal(resp.Data, &query))
	assert.Contains(t, query.Answer, "no documents")
	assert.Empty(t, query.Sources)

	// The model must not be called when there is nothing to retrieve
	assert.Empty(t, env.Completer.prompts)
}

func TestDuplicateUpload(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("dup@example.com")

	resp, err := env.Upload("notes.txt", []byte(testDocument), env.Token)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "error: %s", resp.Error)

	var first ingestPayload
	require.NoError(t, json.Unmarshal(resp.Data, &first))

	// Same bytes under a different name still dedupes on content
	resp, err = env.Upload("renamed.txt", []byte(testDocument), env.Token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "error: %s", resp.Error)

	var second ingestPayload
	require.NoError(t, json.Unmarshal(resp.Data, &second))
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Document.ID, second.Document.ID)

	resp, err = env.Get("/v1/documents", env.Token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list listPayload
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list.Documents, 1)
}

func TestDedupScopedPerUser(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("owner@example.com")
	_, otherToken := env.NewPrincipal("other@example.com")

	resp, err := env.Upload("notes.txt", []byte(testDocument), env.Token)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "error: %s", resp.Error)

	// The same content uploaded by another user is a fresh document
	resp, err = env.Upload("notes.txt", []byte(testDocument), otherToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "error: %s", resp.Error)

	var ingest ingestPayload
	require.NoError(t, json.Unmarshal(resp.Data, &ingest))
	assert.False(t, ingest.Duplicate)
}

func TestRejectUnsupportedFileType(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("reject@example.com")

	resp, err := env.Upload("malware.exe", []byte("MZ binary"), env.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, strings.ToLower(resp.Error), "file type")
}

func TestRejectEmptyDocument(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("blank@example.com")

	resp, err := env.Upload("blank.txt", []byte("   \n\t\n"), env.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnauthenticatedRequests(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/v1/query", map[string]string{"question": "anything"}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = env.Get("/v1/documents", "rcl_"+strings.Repeat("0", 64))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRevokedTokenRejected(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("revoked@example.com")

	tokens, err := env.Auth.ListTokens(env.Ctx, env.UserID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.NoError(t, env.Auth.RevokeToken(env.Ctx, tokens[0].ID))

	resp, err := env.Get("/v1/documents", env.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeactivatedUserForbidden(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("inactive@example.com")

	require.NoError(t, env.Auth.SetUserActive(env.Ctx, env.UserID, false))

	resp, err := env.Get("/v1/documents", env.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
