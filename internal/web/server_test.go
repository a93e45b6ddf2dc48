package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moot-ai/moot-backend/internal/agent"
	"github.com/moot-ai/moot-backend/internal/config"
	"github.com/moot-ai/moot-backend/internal/storage"
	"github.com/moot-ai/moot-backend/internal/stream"
	"github.com/moot-ai/moot-backend/internal/voice"
)

// fakeRuntime replays a scripted event sequence for every turn.
type fakeRuntime struct {
	events []stream.GenerationEvent
	err    error
	last   agent.Request
}

type fakeSource struct {
	ch  chan stream.GenerationEvent
	err error
}

func (f *fakeSource) Events() <-chan stream.GenerationEvent { return f.ch }
func (f *fakeSource) Err() error                            { return f.err }

func (f *fakeRuntime) Process(ctx context.Context, req agent.Request) stream.Source {
	f.last = req
	src := &fakeSource{ch: make(chan stream.GenerationEvent, len(f.events)), err: f.err}
	for _, ev := range f.events {
		src.ch <- ev
	}
	close(src.ch)
	return src
}

func newTestServer(t *testing.T, rt ChatRuntime) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	db, err := storage.Open(cfg.DBPath())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewServer(&cfg, db, rt, stream.NewMultiplexer(nil, 0), nil)
}

func decodeSSE(t *testing.T, body string) []stream.OutputEvent {
	t.Helper()
	var events []stream.OutputEvent
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		payload, ok := strings.CutPrefix(frame, "data: ")
		if !ok {
			t.Fatalf("frame without data prefix: %q", frame)
		}
		var ev stream.OutputEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", payload, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestChatStreamSSE(t *testing.T) {
	rt := &fakeRuntime{events: []stream.GenerationEvent{
		stream.ToolInvocation("web_search"),
		stream.TextDelta("The defendant ", true),
		stream.TextDelta("prevails.", true),
		stream.TextDelta("The defendant prevails.", false),
	}}
	s := newTestServer(t, rt)

	body := `{"message":"who wins?","session_id":"case-7"}`
	req := httptest.NewRequest("POST", "/chat/stream", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	events := decodeSSE(t, rec.Body.String())

	want := []stream.OutputEvent{
		{Type: stream.OutputSession, SessionID: "case-7"},
		{Type: stream.OutputToolCall, ToolName: "web_search"},
		{Type: stream.OutputContent, Content: "The defendant "},
		{Type: stream.OutputContent, Content: "prevails."},
		{Type: stream.OutputDone},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events: %+v", len(events), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}

	if rt.last.UserID != "default_user" {
		t.Errorf("user id = %q", rt.last.UserID)
	}
}

func TestChatStreamErrorFrame(t *testing.T) {
	rt := &fakeRuntime{
		events: []stream.GenerationEvent{stream.TextDelta("partial", true)},
		err:    context.DeadlineExceeded,
	}
	s := newTestServer(t, rt)

	req := httptest.NewRequest("POST", "/chat/stream", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	events := decodeSSE(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Type != stream.OutputError || last.Error == "" {
		t.Errorf("last event = %+v, want error", last)
	}
	for _, ev := range events {
		if ev.Type == stream.OutputDone {
			t.Error("done emitted after pipeline failure")
		}
	}
}

func TestChatStreamValidation(t *testing.T) {
	s := newTestServer(t, &fakeRuntime{})

	req := httptest.NewRequest("POST", "/chat/stream", strings.NewReader(`{"message":""}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d", rec.Code)
	}
}

func TestChatStreamSessionIDGenerated(t *testing.T) {
	rt := &fakeRuntime{}
	s := newTestServer(t, rt)

	req := httptest.NewRequest("POST", "/chat/stream", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	events := decodeSSE(t, rec.Body.String())
	if len(events) == 0 || events[0].Type != stream.OutputSession || events[0].SessionID == "" {
		t.Fatalf("first event = %+v, want session with generated id", events)
	}
	if rt.last.SessionID != events[0].SessionID {
		t.Errorf("runtime session %q != announced %q", rt.last.SessionID, events[0].SessionID)
	}
}

func TestChatStreamAgentRouting(t *testing.T) {
	rt := &fakeRuntime{events: []stream.GenerationEvent{
		stream.TextDelta("Hello.", true),
	}}
	s := newTestServer(t, rt)

	// Unknown agents answer with session then a terminal error frame.
	req := httptest.NewRequest("POST", "/chat/stream",
		strings.NewReader(`{"message":"hi","session_id":"s1","agent_id":"poker_agent"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	events := decodeSSE(t, rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("got %d events: %+v", len(events), events)
	}
	if events[0].Type != stream.OutputSession || events[0].SessionID != "s1" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Type != stream.OutputError || !strings.Contains(events[1].Error, "poker_agent not implemented") {
		t.Errorf("second event = %+v", events[1])
	}
	if rt.last.Message != "" {
		t.Error("runtime ran for an unknown agent")
	}

	// The judge persona aliases the legal agent.
	req = httptest.NewRequest("POST", "/chat/stream",
		strings.NewReader(`{"message":"hi","agent_id":"shisui_judge"}`))
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	events = decodeSSE(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Type != stream.OutputDone {
		t.Errorf("alias agent did not stream a normal turn: %+v", events)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, &fakeRuntime{})
	s.Config.Web.MaxRequestsPerWindow = 1

	for i, wantCode := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("POST", "/chat/stream", strings.NewReader(`{"message":"hi","user_id":"u1"}`))
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Errorf("request %d status = %d, want %d", i, rec.Code, wantCode)
		}
	}
}

func TestUploadPDF(t *testing.T) {
	s := newTestServer(t, &fakeRuntime{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "contract.pdf")
	part.Write([]byte("%PDF-1.4 fake"))
	mw.Close()

	req := httptest.NewRequest("POST", "/upload-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "ready" || resp["filename"] != "contract.pdf" || resp["file_id"] == "" {
		t.Errorf("response = %v", resp)
	}

	stored := resp["file_id"] + "_contract.pdf"
	if _, err := os.Stat(filepath.Join(s.Config.UploadsDir(), stored)); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
	files, _ := s.DB.ListUploadedFiles(10)
	if len(files) != 1 || files[0].StoredName != stored {
		t.Errorf("db records = %+v", files)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	s := newTestServer(t, &fakeRuntime{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	part.Write([]byte("hello"))
	mw.Close()

	req := httptest.NewRequest("POST", "/upload-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGetDocument(t *testing.T) {
	s := newTestServer(t, &fakeRuntime{})
	os.MkdirAll(s.Config.GeneratedDir(), 0o755)
	os.WriteFile(filepath.Join(s.Config.GeneratedDir(), "memo_x.md"), []byte("# Memo"), 0o644)

	req := httptest.NewRequest("GET", "/documents/memo_x.md", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# Memo") {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/documents/no_such.md", nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d", rec.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, &fakeRuntime{})
	r := s.Router()

	// Open access until a password exists.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pre-password status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/password",
		strings.NewReader(`{"password":"super-secret"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("set password status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/sessions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"password":"wrong"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"password":"super-secret"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}

	req := httptest.NewRequest("GET", "/sessions", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d", rec.Code)
	}
}

type fakeVoices struct{ voices []voice.Voice }

func (f *fakeVoices) ListVoices(ctx context.Context) ([]voice.Voice, error) {
	return f.voices, nil
}

func TestListVoices(t *testing.T) {
	s := newTestServer(t, &fakeRuntime{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/voices", nil))
	var resp struct {
		Voices []voice.Voice `json:"voices"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Voices == nil || len(resp.Voices) != 0 {
		t.Errorf("no-backend voices = %v", resp.Voices)
	}

	s.Voices = &fakeVoices{voices: []voice.Voice{{VoiceID: "v1", Name: "Rachel", Category: "premade"}}}
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/voices", nil))
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Voices) != 1 || resp.Voices[0].Name != "Rachel" {
		t.Errorf("voices = %+v", resp.Voices)
	}
}
