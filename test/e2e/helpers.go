//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parchmentlabs/recall/internal/api/handlers"
	"github.com/parchmentlabs/recall/internal/chunker"
	"github.com/parchmentlabs/recall/internal/parser"
	"github.com/parchmentlabs/recall/internal/repository"
	"github.com/parchmentlabs/recall/internal/server"
	"github.com/parchmentlabs/recall/internal/service"
	"github.com/parchmentlabs/recall/internal/testutil"
	"github.com/parchmentlabs/recall/internal/vector"
)

const embedDimension = 64

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Auth         *service.AuthService
	Completer    *scriptedCompleter
	UserID       string
	Token        string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and an in-process server using deterministic embedding and completion stubs.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	completer := &scriptedCompleter{answer: "stub answer"}
	authSvc, serverURL, serverCloser := startServer(t, pool, completer, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Auth:         authSvc,
		Completer:    completer,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap creates a user and issues an access token for testing
func (e *E2ETestEnv) Bootstrap(email string) {
	user, err := e.Auth.CreateUser(e.Ctx, email)
	if err != nil {
		e.T.Fatalf("failed to create user: %v", err)
	}
	e.UserID = user.ID

	token, err := e.Auth.IssueToken(e.Ctx, user.ID, "e2e-test-token")
	if err != nil {
		e.T.Fatalf("failed to issue token: %v", err)
	}
	e.Token = token
}

// NewPrincipal creates a separate user with its own token
func (e *E2ETestEnv) NewPrincipal(email string) (userID, token string) {
	user, err := e.Auth.CreateUser(e.Ctx, email)
	if err != nil {
		e.T.Fatalf("failed to create user: %v", err)
	}
	raw, err := e.Auth.IssueToken(e.Ctx, user.ID, "e2e-extra-token")
	if err != nil {
		e.T.Fatalf("failed to issue token: %v", err)
	}
	return user.ID, raw
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int             `json:"-"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request with a JSON body
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Upload performs a multipart POST of a file to /v1/documents
func (e *E2ETestEnv) Upload(filename string, content []byte, authToken string) (*APIResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", e.ServerURL+"/v1/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return parseResponse(resp)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return parseResponse(resp)
}

func parseResponse(resp *http.Response) (*APIResponse, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	apiResp.StatusCode = resp.StatusCode
	return &apiResp, nil
}

// hashingEmbedder is a deterministic bag-of-words embedder. Each word hashes
// to a dimension, counts are accumulated and the vector is L2-normalized, so
// texts sharing distinctive vocabulary land close together.
type hashingEmbedder struct {
	dim int
}

func (e *hashingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *hashingEmbedder) Dimension() int {
	return e.dim
}

func (e *hashingEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[int(h.Sum32())%e.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// scriptedCompleter returns a fixed answer and records the prompts it saw.
type scriptedCompleter struct {
	answer  string
	prompts []string
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, nil
}

// startServer wires the full stack with stub model providers and starts an
// HTTP server on the given port.
func startServer(t *testing.T, pool *pgxpool.Pool, completer *scriptedCompleter, port int) (*service.AuthService, string, func()) {
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)

	namespaces := vector.NewManager(pool)
	vectors := vector.NewStore(pool)
	embedder := &hashingEmbedder{dim: embedDimension}

	authSvc := service.NewAuthService(userRepo, tokenRepo)
	ingestionSvc := service.NewIngestionService(
		docRepo, parser.New(), embedder, namespaces, vectors,
		chunker.Config{WindowSize: 160, Overlap: 0},
	)
	querySvc := service.NewQueryService(docRepo, embedder, namespaces, vectors, completer, 3)
	documentSvc := service.NewDocumentService(docRepo)

	router := server.NewRouter(server.RouterConfig{
		TokenValidator:  authSvc,
		DocumentHandler: handlers.NewDocumentHandler(ingestionSvc, documentSvc, t.TempDir()),
		QueryHandler:    handlers.NewQueryHandler(querySvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return authSvc, serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
