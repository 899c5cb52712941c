package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/testutil"
)

// startServer runs srv on a free port and returns its base URL and the
// channel Start reports on.
func startServer(t *testing.T, ctx context.Context, srv *Server) (string, <-chan error) {
	t.Helper()

	port := testutil.FreePort(t)
	srv.httpServer.Addr = "127.0.0.1:" + port

	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%s", port)
	testutil.AwaitHealthy(t, baseURL, 10*time.Second)
	return baseURL, done
}

func TestServer_StartAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llm := mockLLM("GOVERNMENT OF INDIA", aadhaarJSON)
	srv := testServer(t, llm, "")
	baseURL, done := startServer(t, ctx, srv)

	if !srv.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}
	if srv.Pipeline() == nil {
		t.Fatal("pipeline not built after Start")
	}

	client := api.NewClient(baseURL)
	if err := client.WaitHealthy(ctx, 5*time.Second); err != nil {
		t.Fatalf("WaitHealthy() error = %v", err)
	}

	var body struct {
		DocumentType string         `json:"document_type"`
		Data         map[string]any `json:"data"`
	}
	if err := client.PostFile(ctx, "/extract-data", "file", "card.png", testutil.PNG(20, 12), &body); err != nil {
		t.Fatalf("PostFile() error = %v", err)
	}
	if body.DocumentType != "aadhaar" {
		t.Errorf("document_type = %q", body.DocumentType)
	}
	if body.Data["aadhaar_number"] != "123456789012" {
		t.Errorf("aadhaar_number = %v", body.Data["aadhaar_number"])
	}

	cancel()
	testutil.AwaitExit(t, done, 10*time.Second)
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
	if srv.Pipeline() != nil {
		t.Error("services should be cleared after shutdown")
	}

	if _, err := http.Get(baseURL + "/health"); err == nil {
		t.Error("server still answering after shutdown")
	}
}

func TestServer_DoubleStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := testServer(t, mockLLM("", "{}"), "")
	_, done := startServer(t, ctx, srv)

	if err := srv.Start(ctx); err == nil {
		t.Error("second Start() should return error")
	}

	cancel()
	testutil.AwaitExit(t, done, 10*time.Second)
}

func TestServer_StartFailsOnBadArchive(t *testing.T) {
	srv := testServer(t, mockLLM("", "{}"), "archive:\n  backends: [minio]\n  minio:\n    endpoint: \"\"\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Start(ctx); err == nil {
		t.Fatal("Start() should fail when the archive cannot be opened")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after failed start")
	}
}

func TestClient_StatusError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := testServer(t, mockLLM("", "{}"), "")
	baseURL, done := startServer(t, ctx, srv)

	client := api.NewClient(baseURL)
	err := client.PostFile(ctx, "/extract-data", "file", "notes.txt", []byte("plain text"), nil)
	se, ok := err.(*api.StatusError)
	if !ok {
		t.Fatalf("error = %T %v, want *api.StatusError", err, err)
	}
	if se.Status != http.StatusBadRequest || se.Message != "Unsupported file format. Upload a valid PDF or image." {
		t.Errorf("StatusError = %+v", se)
	}

	cancel()
	testutil.AwaitExit(t, done, 10*time.Second)
}
