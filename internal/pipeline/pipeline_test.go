package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/docextract/internal/archive"
	"github.com/jackzampolin/docextract/internal/classify"
	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/metrics"
	"github.com/jackzampolin/docextract/internal/providers"
	"github.com/jackzampolin/docextract/internal/schema"
	"github.com/jackzampolin/docextract/internal/testutil"
)

const aadhaarJSON = `{"name":"Asha Verma","date_of_birth":"01/02/1990","gender":"Female","aadhaar_number":"1234 5678 9012","address":"12 MG Road, Pune","parent":"S/O Ravi Verma"}`

// newMock returns a client that transcribes probeText and extracts with reply.
func newMock(probeText, reply string) *providers.MockClient {
	m := providers.NewMockClient()
	m.ResponseText = probeText
	m.ResponseJSON = json.RawMessage(reply)
	return m
}

type testOptions struct {
	pdftoppm       string
	extractTimeout time.Duration
	probeProvider  string
	sink           archive.Sink
	metrics        *metrics.Recorder
}

func newTestPipeline(t *testing.T, reg *providers.Registry, opts testOptions) *Pipeline {
	t.Helper()
	p, err := New(Config{
		Rasterizer:      document.NewRasterizer(document.RasterizerConfig{PdftoppmPath: opts.pdftoppm, TempDir: t.TempDir()}),
		Schemas:         schema.MustRegistry(),
		Providers:       reg,
		ProbeProvider:   opts.probeProvider,
		ExtractProvider: providers.MockClientName,
		ExtractTimeout:  opts.extractTimeout,
		Archive:         opts.sink,
		Metrics:         opts.metrics,
		Logger:          testutil.Logger(t),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func registryWith(llm *providers.MockClient) *providers.Registry {
	reg := providers.NewRegistry()
	reg.RegisterLLM(providers.MockClientName, llm)
	return reg
}

func bodyJSON(t *testing.T, out Outcome) string {
	t.Helper()
	b, err := json.Marshal(out.Body())
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return string(b)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	reg := providers.NewRegistry()
	rast := document.NewRasterizer(document.RasterizerConfig{})
	schemas := schema.MustRegistry()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no rasterizer", Config{Schemas: schemas, Providers: reg}},
		{"no schemas", Config{Rasterizer: rast, Providers: reg}},
		{"no providers", Config{Rasterizer: rast, Schemas: schemas}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHandle_Aadhaar(t *testing.T) {
	llm := newMock("... AADHAAR ... UIDAI ...", aadhaarJSON)
	p := newTestPipeline(t, registryWith(llm), testOptions{})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(32, 20), Filename: "card.png"})

	if !out.OK() || out.Status() != http.StatusOK {
		t.Fatalf("expected success, got %s %+v", out.State, out.Failure)
	}
	if out.Category != classify.Aadhaar || out.Kind != document.KindImage {
		t.Errorf("category=%s kind=%s", out.Category, out.Kind)
	}
	if out.Reached != StateExtracted {
		t.Errorf("Reached = %s", out.Reached)
	}
	for _, s := range States[1:] {
		if _, ok := out.Stages[s]; !ok {
			t.Errorf("missing timing for %s", s)
		}
	}

	want := `{"document_type":"aadhaar","data":{"name":"Asha Verma","date_of_birth":"01/02/1990","gender":"Female","aadhaar_number":"123456789012","address":"12 MG Road, Pune","parent":"S/O Ravi Verma"}}`
	if got := bodyJSON(t, out); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}

	reqs := llm.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected probe and extract calls, got %d", len(reqs))
	}
	probe, extract := reqs[0], reqs[1]
	if probe.ResponseFormat != nil || probe.Messages[0].Content != ProbePrompt {
		t.Errorf("unexpected probe request: %+v", probe)
	}
	if extract.ResponseFormat == nil || extract.ResponseFormat.Type != "json_schema" {
		t.Errorf("extract request should ask for json_schema output: %+v", extract.ResponseFormat)
	}
	if len(extract.Messages[0].Images) != 1 || !bytes.Equal(extract.Messages[0].Images[0], probe.Messages[0].Images[0]) {
		t.Error("both calls should send the same raster")
	}
	for i, req := range reqs {
		if got := req.Messages[0].ImageMIMEType; got != "image/png" {
			t.Errorf("request %d ImageMIMEType = %q, want the raster's type", i, got)
		}
	}
}

func TestHandle_Marksheet(t *testing.T) {
	llm := newMock("Roll Number: 1234, Board: CBSE", `{"full_name":"Ravi","hall_ticket_number":"1234","board_of_education":"CBSE","total_marks":512}`)
	p := newTestPipeline(t, registryWith(llm), testOptions{})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "marks.png"})
	if !out.OK() {
		t.Fatalf("expected success, got %+v", out.Failure)
	}
	if out.Category != classify.Marksheet {
		t.Fatalf("Category = %s", out.Category)
	}

	fields := out.Result.Fields()
	joined := strings.Join(fields, ",")
	if !strings.Contains(joined, "hall_ticket_number") || !strings.Contains(joined, "board_of_education") {
		t.Errorf("fields = %v", fields)
	}
	if v, _ := out.Result.Get("total_marks"); v != "512" {
		t.Errorf("total_marks = %q", v)
	}
	if _, ok := out.Result.Get("religion"); ok {
		t.Error("missing field should be null")
	}
}

func TestHandle_TransferCertificateUsesSharedSchema(t *testing.T) {
	llm := newMock("TRANSFER CERTIFICATE  Reason for leaving: relocation", `{"full_name":"Meera"}`)
	p := newTestPipeline(t, registryWith(llm), testOptions{})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "tc.png"})
	if !out.OK() || out.Category != classify.TransferCertificate {
		t.Fatalf("got %s %s %+v", out.State, out.Category, out.Failure)
	}
	if !strings.HasPrefix(bodyJSON(t, out), `{"document_type":"tc","data":{"full_name":"Meera","hall_ticket_number":null`) {
		t.Errorf("body = %s", bodyJSON(t, out))
	}
}

func TestHandle_UnsupportedFormat(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("hello world"),
		[]byte("%PDF-1.4 truncated"),
		{0x89, 'P', 'N', 'G', 0, 0},
	}

	for _, data := range inputs {
		llm := newMock("AADHAAR", aadhaarJSON)
		p := newTestPipeline(t, registryWith(llm), testOptions{pdftoppm: "/nonexistent/pdftoppm"})

		out := p.Handle(context.Background(), document.Upload{Data: data, Filename: "x.pdf"})
		if out.State != StateFailed || out.Status() != http.StatusBadRequest {
			t.Errorf("%q: got %s status %d", data, out.State, out.Status())
			continue
		}
		if !errors.Is(out.Err, ErrUnsupportedFormat) {
			t.Errorf("%q: err = %v", data, out.Err)
		}
		if out.Reached != StateReceived {
			t.Errorf("%q: Reached = %s", data, out.Reached)
		}
		if got := bodyJSON(t, out); got != `{"error":"Unsupported file format. Upload a valid PDF or image."}` {
			t.Errorf("body = %s", got)
		}
		if llm.RequestCount() != 0 {
			t.Errorf("%q: inference called %d times", data, llm.RequestCount())
		}
	}
}

func TestHandle_ConversionFailed(t *testing.T) {
	llm := newMock("AADHAAR", aadhaarJSON)
	p := newTestPipeline(t, registryWith(llm), testOptions{})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PDF(0), Filename: "scan.pdf"})
	if out.Status() != http.StatusBadRequest || !errors.Is(out.Err, ErrConversionFailed) {
		t.Fatalf("got %d %v", out.Status(), out.Err)
	}
	if out.Kind != document.KindPDF || out.Reached != StateFormatChecked {
		t.Errorf("kind=%s reached=%s", out.Kind, out.Reached)
	}
	if got := bodyJSON(t, out); got != `{"error":"Failed to process scan.pdf"}` {
		t.Errorf("body = %s", got)
	}
	if llm.RequestCount() != 0 {
		t.Errorf("inference called %d times", llm.RequestCount())
	}
}

func TestHandle_EncryptedPDF(t *testing.T) {
	llm := newMock("AADHAAR", aadhaarJSON)
	p := newTestPipeline(t, registryWith(llm), testOptions{})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.EncryptedPDF(t, 1), Filename: "locked.pdf"})
	if out.Status() != http.StatusBadRequest || !errors.Is(out.Err, ErrConversionFailed) {
		t.Fatalf("got %d %v", out.Status(), out.Err)
	}
	if out.Kind != document.KindPDF {
		t.Errorf("kind = %s, want pdf", out.Kind)
	}
	if llm.RequestCount() != 0 {
		t.Errorf("inference called %d times", llm.RequestCount())
	}
}

func TestHandle_RendererUnavailable(t *testing.T) {
	llm := newMock("AADHAAR", aadhaarJSON)
	p := newTestPipeline(t, registryWith(llm), testOptions{pdftoppm: "/nonexistent/pdftoppm"})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PDF(2), Filename: "scan.pdf"})
	if out.Status() != http.StatusInternalServerError || !errors.Is(out.Err, ErrInternal) {
		t.Fatalf("got %d %v", out.Status(), out.Err)
	}
	if errors.Is(out.Err, ErrConversionFailed) {
		t.Errorf("a missing renderer was reported as a bad upload: %v", out.Err)
	}
	if out.Failure.Client() {
		t.Error("failure should be attributed to the server")
	}
	if out.Reached != StateFormatChecked {
		t.Errorf("reached = %s", out.Reached)
	}
	if llm.RequestCount() != 0 {
		t.Errorf("inference called %d times", llm.RequestCount())
	}
}

func TestHandle_Unrecognized(t *testing.T) {
	llm := newMock("Invoice total 500", aadhaarJSON)
	p := newTestPipeline(t, registryWith(llm), testOptions{})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "bill.png"})
	if out.Status() != http.StatusBadRequest || !errors.Is(out.Err, ErrUnrecognizedDocument) {
		t.Fatalf("got %d %v", out.Status(), out.Err)
	}
	if out.Reached != StateProbed || out.Category != classify.Unknown {
		t.Errorf("reached=%s category=%s", out.Reached, out.Category)
	}
	if got := bodyJSON(t, out); got != `{"error":"Could not detect document type. Ensure it's an Aadhaar card or marksheet."}` {
		t.Errorf("body = %s", got)
	}
	if llm.RequestCount() != 1 {
		t.Errorf("expected only the probe call, got %d", llm.RequestCount())
	}
}

func TestHandle_ProbeFailureDegradesToEmptyText(t *testing.T) {
	llm := newMock("", aadhaarJSON)
	llm.Reply = func(req *providers.ChatRequest) (string, error) {
		if req.ResponseFormat == nil {
			return "", errors.New("vision backend exploded")
		}
		return aadhaarJSON, nil
	}
	p := newTestPipeline(t, registryWith(llm), testOptions{})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"})
	if out.Status() != http.StatusBadRequest || !errors.Is(out.Err, ErrUnrecognizedDocument) {
		t.Errorf("probe failure should surface as unrecognized, got %d %v", out.Status(), out.Err)
	}
}

func TestHandle_ProbeViaOCR(t *testing.T) {
	ocr := providers.NewMockOCRProvider()
	ocr.ResponseText = "  Government of India  "
	llm := newMock("should not be used", aadhaarJSON)

	reg := registryWith(llm)
	reg.RegisterOCR(providers.MockOCRName, ocr)
	p := newTestPipeline(t, reg, testOptions{probeProvider: providers.MockOCRName})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"})
	if !out.OK() || out.Category != classify.Aadhaar {
		t.Fatalf("got %s %s %+v", out.State, out.Category, out.Failure)
	}
	if ocr.RequestCount() != 1 || llm.RequestCount() != 1 {
		t.Errorf("ocr=%d llm=%d calls", ocr.RequestCount(), llm.RequestCount())
	}
}

func TestHandle_ExtractionFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty", ""},
		{"whitespace", "   \n "},
		{"not json", "The card belongs to Asha."},
		{"array", `["Asha"]`},
		{"string", `"Asha"`},
		{"fenced garbage", "```json\nnot json\n```"},
		{"no declared fields", `{"holder":"Asha"}`},
		{"nested object", `{"name":{"first":"Asha"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := newMock("AADHAAR", "")
			llm.Reply = func(req *providers.ChatRequest) (string, error) {
				if req.ResponseFormat == nil {
					return "AADHAAR", nil
				}
				return tt.reply, nil
			}
			p := newTestPipeline(t, registryWith(llm), testOptions{})

			out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"})
			if out.Status() != http.StatusBadRequest || !errors.Is(out.Err, ErrExtractionFailed) {
				t.Fatalf("got %d %v", out.Status(), out.Err)
			}
			if out.Reached != StateSchemaSelected {
				t.Errorf("Reached = %s", out.Reached)
			}
			if got := bodyJSON(t, out); got != `{"error":"Failed to extract data from card.png"}` {
				t.Errorf("body = %s", got)
			}
		})
	}
}

func TestHandle_CodeFenceStripped(t *testing.T) {
	llm := newMock("AADHAAR", "```json\n{\"name\": \"X\"}\n```")
	p := newTestPipeline(t, registryWith(llm), testOptions{})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"})
	if !out.OK() {
		t.Fatalf("expected success, got %+v", out.Failure)
	}
	want := `{"name":"X","date_of_birth":null,"gender":null,"aadhaar_number":null,"address":null,"parent":null}`
	b, _ := json.Marshal(out.Result)
	if string(b) != want {
		t.Errorf("result = %s, want %s", b, want)
	}
}

func TestHandle_BackendErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantClass  error
	}{
		{"server error", &providers.APIError{Provider: "mock", StatusCode: 503, Message: "overloaded"}, 500, ErrInternal},
		{"auth error", &providers.APIError{Provider: "mock", StatusCode: 401, Message: "bad key"}, 500, ErrInternal},
		{"transport error", providers.ErrUnavailable, 500, ErrInternal},
		{"bad request", &providers.APIError{Provider: "mock", StatusCode: 400, Message: "image too small"}, 400, ErrExtractionFailed},
		{"plain error", errors.New("model refused"), 400, ErrExtractionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := newMock("AADHAAR", "")
			llm.Reply = func(req *providers.ChatRequest) (string, error) {
				if req.ResponseFormat == nil {
					return "AADHAAR", nil
				}
				return "", tt.err
			}
			p := newTestPipeline(t, registryWith(llm), testOptions{})

			out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"})
			if out.Status() != tt.wantStatus || !errors.Is(out.Err, tt.wantClass) {
				t.Errorf("got %d %v", out.Status(), out.Err)
			}
		})
	}
}

func TestHandle_MissingExtractionBackend(t *testing.T) {
	ocr := providers.NewMockOCRProvider()
	ocr.ResponseText = "UIDAI"
	reg := providers.NewRegistry()
	reg.RegisterOCR(providers.MockOCRName, ocr)
	p := newTestPipeline(t, reg, testOptions{probeProvider: providers.MockOCRName})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"})
	if out.Status() != http.StatusInternalServerError || !errors.Is(out.Err, ErrInternal) {
		t.Fatalf("got %d %v", out.Status(), out.Err)
	}
	if out.Failure.Client() {
		t.Error("missing backend is not a client error")
	}
}

func TestHandle_ExtractTimeout(t *testing.T) {
	ocr := providers.NewMockOCRProvider()
	ocr.ResponseText = "AADHAAR"
	llm := newMock("", aadhaarJSON)
	llm.Latency = time.Second

	reg := registryWith(llm)
	reg.RegisterOCR(providers.MockOCRName, ocr)
	p := newTestPipeline(t, reg, testOptions{probeProvider: providers.MockOCRName, extractTimeout: 20 * time.Millisecond})

	start := time.Now()
	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"})
	if out.Status() != http.StatusBadRequest || !errors.Is(out.Err, ErrExtractionFailed) {
		t.Fatalf("got %d %v", out.Status(), out.Err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("timeout not enforced: took %s", time.Since(start))
	}
	if llm.RequestCount() != 1 {
		t.Errorf("extract should not be retried, got %d calls", llm.RequestCount())
	}
}

func TestHandle_Idempotent(t *testing.T) {
	llm := newMock("Roll Number: 1234, Board: CBSE", `{"full_name":"Ravi","board_of_education":"CBSE","extra":"x"}`)
	p := newTestPipeline(t, registryWith(llm), testOptions{})
	up := document.Upload{Data: testutil.PNG(16, 16), Filename: "marks.png"}

	first := bodyJSON(t, p.Handle(context.Background(), up))
	second := bodyJSON(t, p.Handle(context.Background(), up))
	if first != second {
		t.Errorf("outputs differ:\n%s\n%s", first, second)
	}
}

func TestHandle_PDFUsesFirstPageOnly(t *testing.T) {
	testutil.RequirePdftoppm(t)

	var images [][]byte
	for _, pages := range []int{1, 4} {
		llm := newMock("AADHAAR", aadhaarJSON)
		p := newTestPipeline(t, registryWith(llm), testOptions{})

		out := p.Handle(context.Background(), document.Upload{Data: testutil.PDF(pages), Filename: "card.pdf"})
		if !out.OK() {
			t.Fatalf("%d pages: %+v", pages, out.Failure)
		}
		if out.Kind != document.KindPDF {
			t.Errorf("Kind = %s", out.Kind)
		}
		reqs := llm.Requests()
		images = append(images, reqs[0].Messages[0].Images[0])
	}
	if !bytes.Equal(images[0], images[1]) {
		t.Error("page count changed the rendered raster")
	}
}

type captureSink struct {
	mu   sync.Mutex
	recs []*archive.Record
	err  error
}

func (s *captureSink) Name() string { return "capture" }
func (s *captureSink) Close() error { return nil }

func (s *captureSink) Store(ctx context.Context, rec *archive.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return s.err
}

func TestHandle_Archive(t *testing.T) {
	sink := &captureSink{}
	llm := newMock("UIDAI", aadhaarJSON)
	p := newTestPipeline(t, registryWith(llm), testOptions{sink: sink})

	data := testutil.PNG(8, 8)
	out := p.Handle(WithRequestID(context.Background(), "req-1"), document.Upload{Data: data, Filename: "card.png"})
	if !out.OK() {
		t.Fatalf("expected success: %+v", out.Failure)
	}
	p.Handle(context.Background(), document.Upload{Data: []byte("junk"), Filename: "junk.txt"})

	if len(sink.recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(sink.recs))
	}
	ok, failed := sink.recs[0], sink.recs[1]
	if ok.State != "DONE" || ok.Status != 200 || ok.DocumentType != "aadhaar" || ok.Data["name"] != "Asha Verma" {
		t.Errorf("unexpected success record: %+v", ok)
	}
	if !bytes.Equal(ok.Upload, data) || ok.Kind != "image" {
		t.Error("record should carry the upload")
	}
	if failed.State != "FAILED" || failed.Status != 400 || failed.Error == "" || failed.Data != nil {
		t.Errorf("unexpected failure record: %+v", failed)
	}
}

func TestHandle_ArchiveErrorDoesNotChangeOutcome(t *testing.T) {
	sink := &captureSink{err: errors.New("disk full")}
	llm := newMock("UIDAI", aadhaarJSON)
	p := newTestPipeline(t, registryWith(llm), testOptions{sink: sink})

	out := p.Handle(context.Background(), document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"})
	if !out.OK() || out.Status() != http.StatusOK {
		t.Errorf("archive failure leaked into outcome: %+v", out.Failure)
	}
}

func TestHandle_RecordsMetrics(t *testing.T) {
	store := metrics.NewStore(10)
	llm := newMock("UIDAI", aadhaarJSON)
	p := newTestPipeline(t, registryWith(llm), testOptions{metrics: metrics.NewRecorder(store)})

	ctx := WithRequestID(context.Background(), "req-7")
	if out := p.Handle(ctx, document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"}); !out.OK() {
		t.Fatalf("expected success: %+v", out.Failure)
	}

	got := metrics.NewQuery(store).List(metrics.Filter{RequestID: "req-7"}, 0)
	if len(got) != 2 {
		t.Fatalf("expected probe and extract metrics, got %d", len(got))
	}
	extract, probe := got[0], got[1]
	if probe.Stage != metrics.StageProbe || !probe.Success || probe.Provider != providers.MockClientName {
		t.Errorf("unexpected probe metric: %+v", probe)
	}
	if extract.Stage != metrics.StageExtract || extract.Schema != "aadhaar" || !extract.Success {
		t.Errorf("unexpected extract metric: %+v", extract)
	}

	llm.ShouldFail = true
	p.Handle(WithRequestID(context.Background(), "req-8"), document.Upload{Data: testutil.PNG(8, 8), Filename: "card.png"})
	failed := metrics.NewQuery(store).List(metrics.Filter{RequestID: "req-8"}, 0)
	if len(failed) == 0 || failed[0].Success || failed[0].ErrorType == "" {
		t.Errorf("expected a failed metric, got %+v", failed)
	}
}

func TestRequestID(t *testing.T) {
	if RequestIDFrom(context.Background()) != "" {
		t.Error("expected empty request ID")
	}
	if got := RequestIDFrom(WithRequestID(context.Background(), "abc")); got != "abc" {
		t.Errorf("RequestIDFrom() = %q", got)
	}
}

func TestPipeline_Backends(t *testing.T) {
	llm := newMock("", "{}")
	p := newTestPipeline(t, registryWith(llm), testOptions{})

	if p.ExtractProvider() != providers.MockClientName {
		t.Errorf("ExtractProvider() = %q", p.ExtractProvider())
	}
	if p.ProbeProvider() != providers.MockClientName {
		t.Errorf("ProbeProvider() should default to the extract provider, got %q", p.ProbeProvider())
	}
	if !p.Ready() {
		t.Error("Ready() = false with the extract provider registered")
	}

	empty := newTestPipeline(t, providers.NewRegistry(), testOptions{probeProvider: "mistral"})
	if empty.Ready() {
		t.Error("Ready() = true without an extract provider")
	}
	if empty.ProbeProvider() != "mistral" {
		t.Errorf("ProbeProvider() = %q", empty.ProbeProvider())
	}
}
