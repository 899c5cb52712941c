package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	GeminiName          = "gemini"
	geminiDefaultModel  = "gemini-2.0-flash-001"
	geminiDefaultRegion = "us-central1"
)

// GeminiConfig holds configuration for the Vertex AI Gemini client.
// Credentials come from Application Default Credentials.
type GeminiConfig struct {
	ProjectID    string
	Region       string
	DefaultModel string
	RateLimit    int // Requests per minute (0 = unlimited)
}

// generateFunc performs one GenerateContent call. Swapped out in tests.
type generateFunc func(ctx context.Context, model string, cfg genai.GenerationConfig, schema *genai.Schema, parts []genai.Part) (*genai.GenerateContentResponse, error)

// GeminiClient implements LLMClient using Vertex AI.
type GeminiClient struct {
	projectID    string
	region       string
	defaultModel string
	limiter      *RateLimiter

	mu       sync.Mutex
	client   *genai.Client
	generate generateFunc
}

// NewGeminiClient creates a Gemini client. The underlying Vertex AI
// connection is opened on first use.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Region == "" {
		cfg.Region = geminiDefaultRegion
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = geminiDefaultModel
	}

	c := &GeminiClient{
		projectID:    cfg.ProjectID,
		region:       cfg.Region,
		defaultModel: cfg.DefaultModel,
	}
	if cfg.RateLimit > 0 {
		c.limiter = NewRateLimiter(cfg.RateLimit)
	}
	c.generate = c.vertexGenerate
	return c
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// RateLimiter returns the client's limiter, or nil when unlimited.
func (c *GeminiClient) RateLimiter() *RateLimiter {
	return c.limiter
}

// Close releases the Vertex AI connection, if one was opened.
func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Chat sends a single GenerateContent request.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  GeminiName,
		ModelUsed: model,
	}

	var parts []genai.Part
	for _, m := range req.Messages {
		for _, img := range m.Images {
			mimeType := m.ImageMIMEType
			if mimeType == "" {
				mimeType = imageMIMEType(img)
			}
			parts = append(parts, genai.ImageData(strings.TrimPrefix(mimeType, "image/"), img))
		}
		if m.Content != "" {
			parts = append(parts, genai.Text(m.Content))
		}
	}

	genCfg := genai.GenerationConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = genai.Ptr(int32(req.MaxTokens))
	}

	var schema *genai.Schema
	if req.ResponseFormat != nil {
		genCfg.ResponseMIMEType = "application/json"
		if req.ResponseFormat.Type == "json_schema" && len(req.ResponseFormat.JSONSchema) > 0 {
			s, err := geminiResponseSchema(req.ResponseFormat.JSONSchema)
			if err != nil {
				return result.fail("schema_error", err, start)
			}
			schema = s
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return result.fail("rate_limit", err, start)
		}
	}

	resp, err := c.generate(ctx, model, genCfg, schema, parts)
	if err != nil {
		mapped := mapGeminiError(ctx, err)
		var apiErr *APIError
		if errors.As(mapped, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests && c.limiter != nil {
			c.limiter.Record429()
		}
		return result.fail("http_error", mapped, start)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return result.fail("empty_response", fmt.Errorf("no candidates in response"), start)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	result.Success = true
	result.Content = sb.String()
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}

func (c *GeminiClient) vertexGenerate(ctx context.Context, model string, cfg genai.GenerationConfig, schema *genai.Schema, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	client, err := c.vertexClient(ctx)
	if err != nil {
		return nil, err
	}
	m := client.GenerativeModel(model)
	m.GenerationConfig = cfg
	m.ResponseSchema = schema
	return m.GenerateContent(ctx, parts...)
}

func (c *GeminiClient) vertexClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := genai.NewClient(ctx, c.projectID, c.region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w: %w", ErrUnavailable, err)
	}
	c.client = client
	return client, nil
}

// geminiResponseSchema converts a json_schema wrapper into a genai.Schema.
// Type unions with "null" become Nullable.
func geminiResponseSchema(raw json.RawMessage) (*genai.Schema, error) {
	var wrapper struct {
		Schema map[string]any `json:"schema"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid json_schema wrapper: %w", err)
	}
	if wrapper.Schema == nil {
		return nil, fmt.Errorf("json_schema wrapper has no schema")
	}
	return toGenaiSchema(wrapper.Schema), nil
}

func toGenaiSchema(node map[string]any) *genai.Schema {
	s := &genai.Schema{}
	if desc, ok := node["description"].(string); ok {
		s.Description = desc
	}

	switch t := node["type"].(type) {
	case string:
		s.Type = genaiType(t)
	case []any:
		for _, v := range t {
			name, _ := v.(string)
			if name == "null" {
				s.Nullable = true
				continue
			}
			if s.Type == genai.TypeUnspecified {
				s.Type = genaiType(name)
			}
		}
	}

	if props, ok := node["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if child, ok := p.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(child)
			}
		}
	}
	if req, ok := node["required"].([]any); ok {
		for _, v := range req {
			if name, ok := v.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	return s
}

func genaiType(name string) genai.Type {
	switch name {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	}
	return genai.TypeUnspecified
}

// mapGeminiError converts gRPC status errors to APIError.
func mapGeminiError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s request failed: %w", GeminiName, ctxErr)
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &APIError{Provider: GeminiName, StatusCode: http.StatusUnprocessableEntity, Message: blocked.Error()}
	}

	st, ok := status.FromError(err)
	if !ok {
		return unavailable(GeminiName, err)
	}
	return &APIError{Provider: GeminiName, StatusCode: grpcHTTPStatus(st.Code()), Message: st.Message()}
}

func grpcHTTPStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var _ LLMClient = (*GeminiClient)(nil)
