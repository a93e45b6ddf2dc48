package agent

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseCaseContext(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *CaseContext
	}{
		{"empty payload", "", nil},
		{"malformed json", "{not json", nil},
		{"all fields blank", `{"case_type":"","difficulty":"","description":""}`, nil},
		{
			"full context",
			`{"case_type":"criminal","difficulty":"intermediate","description":"armed robbery appeal","uploaded_files":["brief.pdf"]}`,
			&CaseContext{CaseType: "criminal", Difficulty: "intermediate", Description: "armed robbery appeal", UploadedFiles: []string{"brief.pdf"}},
		},
		{
			"partial context",
			`{"description":"landlord-tenant dispute"}`,
			&CaseContext{Description: "landlord-tenant dispute"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCaseContext(json.RawMessage(tt.raw))
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got == nil {
				return
			}
			if got.CaseType != tt.want.CaseType || got.Difficulty != tt.want.Difficulty ||
				got.Description != tt.want.Description || len(got.UploadedFiles) != len(tt.want.UploadedFiles) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCaseContextPromptBlock(t *testing.T) {
	cc := &CaseContext{
		CaseType:      "civil",
		Difficulty:    "beginner",
		Description:   "slip and fall",
		UploadedFiles: []string{"incident.pdf", "photos.pdf"},
	}
	block := cc.PromptBlock()

	if !strings.HasPrefix(block, "[Case Context]\n") || !strings.HasSuffix(block, "[End Case Context]") {
		t.Errorf("block delimiters wrong: %q", block)
	}
	for _, want := range []string{"Case type: civil", "Difficulty: beginner", "slip and fall", "incident.pdf, photos.pdf"} {
		if !strings.Contains(block, want) {
			t.Errorf("block missing %q:\n%s", want, block)
		}
	}

	// Blank fields are omitted entirely.
	minimal := (&CaseContext{Description: "only description"}).PromptBlock()
	if strings.Contains(minimal, "Case type:") || strings.Contains(minimal, "Difficulty:") {
		t.Errorf("minimal block has empty fields:\n%s", minimal)
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	original := `[{"role":"user","content":"hi"},{"role":"assistant","content":[{"type":"text","text":"hello"}]}]`
	messages, err := UnmarshalMessages(original)
	if err != nil {
		t.Fatalf("UnmarshalMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages", len(messages))
	}
	if messages[1].Content.PlainText() != "hello" {
		t.Errorf("assistant text = %q", messages[1].Content.PlainText())
	}

	data, err := MarshalMessages(messages)
	if err != nil {
		t.Fatalf("MarshalMessages: %v", err)
	}
	reparsed, err := UnmarshalMessages(data)
	if err != nil || len(reparsed) != 2 {
		t.Errorf("reparse: %d messages, err %v", len(reparsed), err)
	}
}
