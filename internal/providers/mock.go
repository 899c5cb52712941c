package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const (
	MockClientName = "mock"
	MockOCRName    = "mock-ocr"
)

// MockBehavior is the failure and latency knobs shared by the mocks.
type MockBehavior struct {
	Latency    time.Duration
	ShouldFail bool
	Err        error // returned when ShouldFail is set
	FailAfter  int   // calls beyond this many fail, 0 disables

	calls atomic.Int64
}

// admit counts the call, then fails it or sleeps Latency.
func (b *MockBehavior) admit(ctx context.Context) (int64, error) {
	n := b.calls.Add(1)
	switch {
	case b.ShouldFail && b.Err != nil:
		return n, b.Err
	case b.ShouldFail:
		return n, errors.New("mock configured to fail")
	case b.FailAfter > 0 && n > int64(b.FailAfter):
		return n, fmt.Errorf("mock failed after %d calls", b.FailAfter)
	}

	t := time.NewTimer(b.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return n, nil
	case <-ctx.Done():
		return n, ctx.Err()
	}
}

// RequestCount is the number of calls made, failed ones included.
func (b *MockBehavior) RequestCount() int64 { return b.calls.Load() }

// MockClient is an LLMClient for tests and the "mock" provider type.
//
// Plain requests get ResponseText. Requests with a ResponseFormat get
// ResponseJSON when it is set. Reply, when non-nil, decides every answer.
type MockClient struct {
	MockBehavior
	ResponseText string
	ResponseJSON json.RawMessage
	Reply        func(req *ChatRequest) (string, error)

	mu       sync.Mutex
	requests []ChatRequest
}

func NewMockClient() *MockClient {
	c := &MockClient{ResponseText: "mock response"}
	c.Latency = time.Millisecond
	return c
}

func (c *MockClient) Name() string { return MockClientName }

func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	n, err := c.admit(ctx)
	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", n),
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}
	if err != nil {
		if ctx.Err() != nil {
			return result.fail("context_cancelled", err, start)
		}
		return result.fail("mock_failure", err, start)
	}

	content := c.ResponseText
	if req.ResponseFormat != nil && len(c.ResponseJSON) > 0 {
		content = string(c.ResponseJSON)
	}
	if c.Reply != nil {
		if content, err = c.Reply(req); err != nil {
			return result.fail("mock_failure", err, start)
		}
	}

	// Rough estimate of four characters per token.
	for _, m := range req.Messages {
		result.PromptTokens += len(m.Content) / 4
	}
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// Requests returns every request received, in order.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.requests)
}

// Reset clears the call count and request history.
func (c *MockClient) Reset() {
	c.calls.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

var _ LLMClient = (*MockClient)(nil)

// MockOCRProvider answers every image with ResponseText.
type MockOCRProvider struct {
	MockBehavior
	ProviderName string
	ResponseText string
}

func NewMockOCRProvider() *MockOCRProvider {
	p := &MockOCRProvider{ProviderName: MockOCRName, ResponseText: "mock OCR text"}
	p.Latency = time.Millisecond
	return p
}

func (p *MockOCRProvider) Name() string { return p.ProviderName }

func (p *MockOCRProvider) ProcessImage(ctx context.Context, image []byte, mimeType string) (*OCRResult, error) {
	start := time.Now()
	_, err := p.admit(ctx)
	result := &OCRResult{Model: p.ProviderName, ExecutionTime: time.Since(start)}
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}
	result.Success = true
	result.Text = p.ResponseText
	result.Pages = 1
	return result, nil
}

// Reset clears the call count.
func (p *MockOCRProvider) Reset() { p.calls.Store(0) }

var _ OCRProvider = (*MockOCRProvider)(nil)
