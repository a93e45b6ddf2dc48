package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadDocumentMatching(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "abc123_lease_contract.txt"), []byte("ARTICLE 1\nParties agree.\nARTICLE 2\nRent is due monthly."), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("misc notes"), 0o644)

	tool := NewReadDocumentTool(dir)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "substring match case insensitive",
			input: `{"document_name":"Lease_Contract"}`,
			want:  "Rent is due monthly.",
		},
		{
			name:  "glob match",
			input: `{"document_name":"*lease*"}`,
			want:  "ARTICLE 1",
		},
		{
			name:  "section extraction",
			input: `{"document_name":"lease","section":"ARTICLE 2"}`,
			want:  "**Section: ARTICLE 2**",
		},
		{
			name:  "missing document lists available",
			input: `{"document_name":"deposition"}`,
			want:  "Available documents:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tool.Execute(context.Background(), json.RawMessage(tt.input))
			if res.IsError {
				t.Fatalf("unexpected error: %s", res.Content)
			}
			if !strings.Contains(res.Content, tt.want) {
				t.Errorf("content missing %q:\n%s", tt.want, res.Content)
			}
		})
	}
}

func TestReadDocumentSectionStopsAtNextHeader(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "brief.txt"),
		[]byte("Arbitration Clause\nall disputes resolved by arbitration\nSeverability\nclauses are severable"), 0o644)

	tool := NewReadDocumentTool(dir)
	res := tool.Execute(context.Background(), json.RawMessage(`{"document_name":"brief","section":"Arbitration"}`))
	if !strings.Contains(res.Content, "all disputes") {
		t.Errorf("section body missing: %s", res.Content)
	}
	if strings.Contains(res.Content, "severable") {
		t.Errorf("section leaked past next header: %s", res.Content)
	}
}

func TestReadDocumentEmptyUploads(t *testing.T) {
	tool := NewReadDocumentTool(filepath.Join(t.TempDir(), "missing"))
	res := tool.Execute(context.Background(), json.RawMessage(`{"document_name":"x"}`))
	if res.IsError || !strings.Contains(res.Content, "No documents") {
		t.Errorf("got %+v", res)
	}
}

func TestGenerateDocumentMemo(t *testing.T) {
	dir := t.TempDir()
	tool := NewGenerateDocumentTool(dir)

	res := tool.Execute(context.Background(), json.RawMessage(
		`{"document_type":"memo","title":"Lease Dispute: Analysis","content":"The clause is unconscionable.","metadata":"{\"client\":\"Acme\",\"case_number\":\"22-cv-1001\"}"}`))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if !strings.Contains(res.Content, "[DOWNLOAD_LINK:memo_Lease_Dispute_Analysis_") {
		t.Errorf("missing download marker: %s", res.Content)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 generated file, got %d", len(entries))
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	for _, want := range []string{"## MEMORANDUM", "**Client:** Acme", "**Case No.:** 22-cv-1001", "unconscionable"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("generated doc missing %q", want)
		}
	}
}

func TestProvideLinkMarker(t *testing.T) {
	tool := NewProvideLinkTool()
	res := tool.Execute(context.Background(), json.RawMessage(
		`{"title":"Cornell Law","url":"https://law.cornell.edu","description":"LII"}`))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if res.Content != "[LINK_PROVIDED:Cornell Law|https://law.cornell.edu|LII]" {
		t.Errorf("marker = %q", res.Content)
	}
}

func TestWebSearchPerplexity(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Armendariz v. Foundation Health", "url": "https://law.cornell.edu/armendariz", "snippet": "California Supreme Court...", "date": "2000"},
			},
		})
	}))
	defer srv.Close()

	tool := NewWebSearchTool("pk-test")
	tool.perplexityURL = srv.URL

	res := tool.Execute(context.Background(), json.RawMessage(`{"query":"arbitration unconscionability","domain_filter":"legal"}`))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if !strings.Contains(res.Content, "Armendariz") || !strings.Contains(res.Content, "**Date:** 2000") {
		t.Errorf("formatted results wrong:\n%s", res.Content)
	}

	domains, ok := gotBody["search_domain_filter"].([]any)
	if !ok || len(domains) != len(legalDomains) {
		t.Errorf("legal domain filter not applied: %v", gotBody["search_domain_filter"])
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewToolRegistry()
	res := r.Execute(context.Background(), "nope", json.RawMessage(`{}`))
	if !res.IsError || !strings.Contains(res.Content, "unknown tool") {
		t.Errorf("got %+v", res)
	}
}

func TestBuildStandardRegistry(t *testing.T) {
	r := BuildStandardRegistry(RegistryConfig{UploadsDir: t.TempDir(), GeneratedDir: t.TempDir()})
	for _, name := range []string{"web_search", "read_document", "generate_document", "provide_link"} {
		if !r.Has(name) {
			t.Errorf("registry missing %s", name)
		}
	}
	if got := len(r.Definitions()); got != 4 {
		t.Errorf("definitions = %d", got)
	}
}
