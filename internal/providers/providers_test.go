package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"
	"time"
)

// testPNG is a small valid PNG used as vision input.
var testPNG = func() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}()

func TestAPIError_Unavailable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnprocessableEntity, false},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusNotFound, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &APIError{Provider: "p", StatusCode: tt.status, Message: "m"})
			if got := errors.Is(err, ErrUnavailable); got != tt.want {
				t.Errorf("errors.Is(ErrUnavailable) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnavailable(t *testing.T) {
	if err := unavailable("p", errors.New("connection refused")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("transport error should be unavailable: %v", err)
	}
	err := unavailable("p", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("deadline should not be unavailable: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("deadline should be preserved: %v", err)
	}
}

func TestImageDataURL(t *testing.T) {
	if got := imageDataURL(testPNG, "image/jpeg"); !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("declared type ignored: %.30s", got)
	}
	if got := imageDataURL(testPNG, ""); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("sniffed type wrong: %.30s", got)
	}
}

func TestImageMIMEType(t *testing.T) {
	if got := imageMIMEType(testPNG); got != "image/png" {
		t.Errorf("png: got %q", got)
	}
	if got := imageMIMEType([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}); got != "image/jpeg" {
		t.Errorf("jpeg: got %q", got)
	}
	if got := imageMIMEType([]byte("not an image")); got != "image/png" {
		t.Errorf("fallback: got %q", got)
	}
}

func TestMockClient(t *testing.T) {
	t.Run("plain and structured responses", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "Government of India"
		c.ResponseJSON = json.RawMessage(`{"name":"Asha"}`)

		plain, err := c.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "probe"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if plain.Content != "Government of India" {
			t.Errorf("plain Content = %q", plain.Content)
		}

		structured, err := c.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "extract"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema"},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if structured.Content != `{"name":"Asha"}` {
			t.Errorf("structured Content = %q", structured.Content)
		}

		if c.RequestCount() != 2 {
			t.Errorf("RequestCount = %d, want 2", c.RequestCount())
		}
		reqs := c.Requests()
		if len(reqs) != 2 || reqs[0].Messages[0].Content != "probe" {
			t.Errorf("unexpected request history: %+v", reqs)
		}
	})

	t.Run("reply hook", func(t *testing.T) {
		c := NewMockClient()
		c.Reply = func(req *ChatRequest) (string, error) {
			if req.ResponseFormat != nil {
				return "", &APIError{Provider: "mock", StatusCode: 503, Message: "down"}
			}
			return "text", nil
		}

		if r, err := c.Chat(context.Background(), &ChatRequest{}); err != nil || r.Content != "text" {
			t.Errorf("plain call: %v, %v", r, err)
		}
		_, err := c.Chat(context.Background(), &ChatRequest{ResponseFormat: &ResponseFormat{Type: "json_object"}})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("should fail", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true

		result, err := c.Chat(context.Background(), &ChatRequest{})
		if err == nil {
			t.Error("expected error")
		}
		if result.Success {
			t.Error("Success = true, want false")
		}
	})

	t.Run("custom error", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true
		c.Err = ErrUnavailable

		if _, err := c.Chat(context.Background(), &ChatRequest{}); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("fail after N", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 2

		for i := 0; i < 2; i++ {
			if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
				t.Errorf("request %d failed unexpectedly: %v", i+1, err)
			}
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
			t.Error("request 3 should have failed")
		}
	})

	t.Run("respects deadline", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = time.Second

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := c.Chat(ctx, &ChatRequest{}); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("reset", func(t *testing.T) {
		c := NewMockClient()
		c.Chat(context.Background(), &ChatRequest{})
		c.Reset()
		if c.RequestCount() != 0 || len(c.Requests()) != 0 {
			t.Error("Reset should clear count and history")
		}
	})
}

func TestMockOCRProvider(t *testing.T) {
	p := NewMockOCRProvider()
	p.ResponseText = "MARKSHEET"

	result, err := p.ProcessImage(context.Background(), testPNG, "image/png")
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if !result.Success || result.Text != "MARKSHEET" {
		t.Errorf("unexpected result: %+v", result)
	}
	if p.Name() != MockOCRName {
		t.Errorf("Name() = %q", p.Name())
	}

	p.ShouldFail = true
	if _, err := p.ProcessImage(context.Background(), testPNG, "image/png"); err == nil {
		t.Error("expected error when ShouldFail")
	}
}
