package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CaseContext describes the moot case a session is preparing. Clients send
// it with the first message of a session; it is folded into that message so
// the model sees it once and session history carries it from then on.
type CaseContext struct {
	CaseType      string   `json:"case_type"`
	Difficulty    string   `json:"difficulty"`
	Description   string   `json:"description"`
	UploadedFiles []string `json:"uploaded_files,omitempty"`
}

// ParseCaseContext decodes a raw case context payload. Malformed payloads
// are treated as absent rather than failing the request.
func ParseCaseContext(raw json.RawMessage) *CaseContext {
	if len(raw) == 0 {
		return nil
	}
	var cc CaseContext
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil
	}
	if cc.CaseType == "" && cc.Difficulty == "" && cc.Description == "" && len(cc.UploadedFiles) == 0 {
		return nil
	}
	return &cc
}

// PromptBlock renders the context as a deterministic preamble block.
func (cc *CaseContext) PromptBlock() string {
	var sb strings.Builder
	sb.WriteString("[Case Context]\n")
	if cc.CaseType != "" {
		sb.WriteString(fmt.Sprintf("Case type: %s\n", cc.CaseType))
	}
	if cc.Difficulty != "" {
		sb.WriteString(fmt.Sprintf("Difficulty: %s\n", cc.Difficulty))
	}
	if cc.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", cc.Description))
	}
	if len(cc.UploadedFiles) > 0 {
		sb.WriteString(fmt.Sprintf("Uploaded files: %s\n", strings.Join(cc.UploadedFiles, ", ")))
	}
	sb.WriteString("[End Case Context]")
	return sb.String()
}
