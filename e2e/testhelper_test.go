package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/auth"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/client"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/config"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/handler"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/middleware"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/pipeline"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/quality"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/server"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/service"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
	llm *client.MockLLM
}

// setupApp creates the same app as main.go with in-memory storage and the
// offline generator, so no external service is needed.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	prompts, err := pipeline.LoadPrompts()
	if err != nil {
		t.Fatalf("LoadPrompts() error: %v", err)
	}

	llm := client.NewMockLLM()
	deps := &pipeline.Deps{
		Generator:   llm,
		Sources:     client.NewMockSerpClient(),
		Prompts:     prompts,
		Quality:     quality.DefaultConfig(),
		SourceCount: 10,
	}

	jobs := store.NewMemoryStore()
	checkpoints := store.NewMemoryCheckpoints()
	orchestrator := pipeline.NewOrchestrator(deps, jobs, checkpoints, nil)

	// nil asynq client runs jobs inline
	jobService := service.NewJobService(jobs, checkpoints, orchestrator, nil, config.PipelineConfig{
		MaxRevisions:     2,
		DefaultWordCount: 800,
		DefaultLanguage:  "en",
	})

	authenticator := auth.NewAuthenticator(nil, testJWTSecret)

	app := server.New(server.Options{
		Jobs:    handler.NewJobHandler(jobService, validator.New()),
		Auth:    handler.NewAuthHandler(authenticator),
		APIAuth: middleware.NewAuthMiddleware(authenticator).Authenticate(),
		// nil redis disables rate limiting
		RateLimiter: middleware.NewRateLimiter(nil),
		JobsPerHour: 10000,
		Services: server.Services{
			LLM:   "mock",
			Serp:  "mock",
			Store: "memory",
			Auth:  authenticator.Configured(),
		},
	})

	return &testApp{app: app, llm: llm}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	token, err := auth.IssueLegacyToken("test-user-123", "test@example.com", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode returns error.code from an error response body.
func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'error' object, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}

// jobField returns job.<key> from a job response body.
func jobField(t *testing.T, body map[string]interface{}, key string) interface{} {
	t.Helper()
	job, ok := body["job"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'job' object, got %v", body)
	}
	return job[key]
}
