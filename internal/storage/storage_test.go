package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/moot-ai/moot-backend/internal/core"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "moot.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenReportsDatabaseError(t *testing.T) {
	// A directory in place of the db file fails on first use.
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected error opening a directory as a database")
	}
	var me *core.MootError
	if !errors.As(err, &me) || me.Kind != core.ErrKindDatabase {
		t.Errorf("error not database-tagged: %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	db := openTestDB(t)

	sess, err := db.GetOrCreateSession("u1", "s1")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	if sess.MessagesJSON != "" {
		t.Errorf("new session has messages: %q", sess.MessagesJSON)
	}

	if err := db.SaveSession("u1", "s1", `[{"role":"user","content":"hi"}]`); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	loaded, found, err := db.LoadSession("u1", "s1")
	if err != nil || !found {
		t.Fatalf("LoadSession: found=%v err=%v", found, err)
	}
	if loaded.MessagesJSON != `[{"role":"user","content":"hi"}]` {
		t.Errorf("messages = %q", loaded.MessagesJSON)
	}

	// Same session id under another user is a distinct session.
	other, err := db.GetOrCreateSession("u2", "s1")
	if err != nil {
		t.Fatalf("GetOrCreateSession u2: %v", err)
	}
	if other.MessagesJSON != "" {
		t.Errorf("sessions leaked across users: %q", other.MessagesJSON)
	}
}

func TestListAndDeleteSessions(t *testing.T) {
	db := openTestDB(t)

	db.SaveSession("u1", "s1", "[]")
	db.SaveSession("u1", "s2", "[]")
	db.SaveSession("u2", "s3", "[]")

	metas, err := db.ListSessions("u1", 10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d sessions", len(metas))
	}

	if err := db.DeleteSession("u1", "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	_, found, _ := db.LoadSession("u1", "s1")
	if found {
		t.Error("session survived delete")
	}
}

func TestLLMUsageSummary(t *testing.T) {
	db := openTestDB(t)

	db.LogLLMUsage("u1", "s1", "gemini", "gemini-2.0-flash", 100, 50, "agent_loop")
	db.LogLLMUsage("u1", "s1", "gemini", "gemini-2.0-flash", 10, 5, "agent_loop")
	db.LogLLMUsage("u2", "s2", "openai", "gpt-4o-mini", 7, 3, "agent_loop")

	s, err := db.GetLLMUsageSummary("u1")
	if err != nil {
		t.Fatalf("GetLLMUsageSummary: %v", err)
	}
	if s.Requests != 2 || s.InputTokens != 110 || s.OutputTokens != 55 || s.TotalTokens != 165 {
		t.Errorf("summary = %+v", s)
	}

	global, err := db.GetLLMUsageSummary("")
	if err != nil {
		t.Fatalf("global summary: %v", err)
	}
	if global.Requests != 3 {
		t.Errorf("global requests = %d", global.Requests)
	}
}

func TestAuthSessions(t *testing.T) {
	db := openTestDB(t)

	if _, found, _ := db.GetAuthPasswordHash(); found {
		t.Error("unexpected password hash in fresh db")
	}
	if err := db.UpsertAuthPasswordHash("hash1"); err != nil {
		t.Fatalf("UpsertAuthPasswordHash: %v", err)
	}
	hash, found, err := db.GetAuthPasswordHash()
	if err != nil || !found || hash != "hash1" {
		t.Fatalf("GetAuthPasswordHash = %q %v %v", hash, found, err)
	}

	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	db.CreateAuthSession("tok1", "web", expires)
	if ok, _ := db.ValidateAuthSession("tok1"); !ok {
		t.Error("fresh session invalid")
	}

	db.RevokeAuthSession("tok1")
	if ok, _ := db.ValidateAuthSession("tok1"); ok {
		t.Error("revoked session still valid")
	}

	expired := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	db.CreateAuthSession("tok2", "web", expired)
	if ok, _ := db.ValidateAuthSession("tok2"); ok {
		t.Error("expired session still valid")
	}
}

func TestUploadedFilesRetention(t *testing.T) {
	db := openTestDB(t)

	db.InsertUploadedFile("f1", "contract.pdf", "f1_contract.pdf", 1234)
	db.InsertUploadedFile("f2", "brief.txt", "f2_brief.txt", 99)

	files, err := db.ListUploadedFiles(10)
	if err != nil || len(files) != 2 {
		t.Fatalf("ListUploadedFiles = %v, %v", files, err)
	}

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	names, err := db.DeleteUploadedFilesBefore(future)
	if err != nil {
		t.Fatalf("DeleteUploadedFilesBefore: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("deleted names = %v", names)
	}
	files, _ = db.ListUploadedFiles(10)
	if len(files) != 0 {
		t.Errorf("records survived retention: %v", files)
	}
}
