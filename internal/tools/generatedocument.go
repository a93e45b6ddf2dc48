package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/moot-ai/moot-backend/internal/core"
)

// GenerateDocumentTool creates formatted legal documents (memos, briefs,
// summaries, outlines) and saves them for download. The returned text
// carries a [DOWNLOAD_LINK:...] marker the frontend turns into a download
// card; it is passed through as ordinary content.
type GenerateDocumentTool struct {
	generatedDir string
}

func NewGenerateDocumentTool(generatedDir string) *GenerateDocumentTool {
	return &GenerateDocumentTool{generatedDir: generatedDir}
}

func (t *GenerateDocumentTool) Name() string { return "generate_document" }

func (t *GenerateDocumentTool) Definition() core.ToolDefinition {
	return MakeDef("generate_document",
		"Generate a formatted legal document and save it for download.",
		map[string]any{
			"document_type": EnumProp("Type of document", []string{"memo", "brief", "summary", "outline", "contract_draft", "letter"}),
			"title":         StringProp("Title of the document"),
			"content":       StringProp("The main content/body of the document"),
			"metadata":      StringProp("Optional JSON string with additional info like case_number, client, date, author"),
		},
		[]string{"document_type", "title", "content"},
	)
}

func (t *GenerateDocumentTool) Execute(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		DocumentType string `json:"document_type"`
		Title        string `json:"title"`
		Content      string `json:"content"`
		Metadata     string `json:"metadata"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return Error("invalid input: " + err.Error())
	}
	if params.DocumentType == "" || params.Title == "" || params.Content == "" {
		return Error("document_type, title and content are required")
	}

	// Metadata is advisory; a malformed payload is simply ignored.
	meta := map[string]string{}
	if params.Metadata != "" {
		json.Unmarshal([]byte(params.Metadata), &meta)
	}

	formatted := formatDocument(params.DocumentType, params.Title, params.Content, meta)

	if err := os.MkdirAll(t.generatedDir, 0o755); err != nil {
		return Error(fmt.Sprintf("Error generating document: %v", err))
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s_%s.md", params.DocumentType, safeTitle(params.Title), timestamp)
	path := filepath.Join(t.generatedDir, filename)
	if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
		return Error(fmt.Sprintf("Error generating document: %v", err))
	}

	display := titleWords(strings.ReplaceAll(params.DocumentType, "_", " "))
	return Success(fmt.Sprintf("**Document Generated**\n\n**%s:** %s\n\n[DOWNLOAD_LINK:%s]\n\n---\n\n%s",
		display, params.Title, filename, core.Truncate(formatted, 1500)))
}

// safeTitle keeps alphanumerics, dashes and underscores, mapping spaces to
// underscores and capping the length.
func safeTitle(title string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune('_')
		}
	}
	s := sb.String()
	if len(s) > 50 {
		s = s[:core.FloorCharBoundary(s, 50)]
	}
	return s
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func formatDocument(docType, title, content string, meta map[string]string) string {
	date := meta["date"]
	if date == "" {
		date = time.Now().Format("January 2, 2006")
	}
	author := meta["author"]
	if author == "" {
		author = "Legal Agent"
	}

	var header strings.Builder
	header.WriteString(fmt.Sprintf("# %s\n\n**Date:** %s  \n**Prepared by:** %s\n", title, date, author))
	if meta["case_number"] != "" {
		header.WriteString(fmt.Sprintf("**Case No.:** %s  \n", meta["case_number"]))
	}
	if meta["client"] != "" {
		header.WriteString(fmt.Sprintf("**Client:** %s  \n", meta["client"]))
	}
	header.WriteString("\n---\n\n")

	switch docType {
	case "memo":
		return header.String() + fmt.Sprintf("## MEMORANDUM\n\n**RE:** %s\n\n### Summary\n\n%s\n\n---\n\n*This memorandum is prepared for internal use only.*\n", title, content)
	case "brief":
		return header.String() + fmt.Sprintf("## LEGAL BRIEF\n\n### Statement of Facts\n\n%s\n\n### Conclusion\n\n[To be completed based on further analysis]\n\n---\n\n*Respectfully submitted.*\n", content)
	case "summary":
		return header.String() + fmt.Sprintf("## CASE SUMMARY\n\n%s\n\n---\n\n*Summary prepared for quick reference.*\n", content)
	case "outline":
		return header.String() + fmt.Sprintf("## ARGUMENT OUTLINE\n\n%s\n\n---\n\n*This outline is intended as a framework for oral argument.*\n", content)
	case "contract_draft":
		return header.String() + fmt.Sprintf("## CONTRACT DRAFT\n\n### TERMS AND CONDITIONS\n\n%s\n\n---\n\n*DRAFT - For review purposes only. Not a final agreement.*\n", content)
	case "letter":
		return header.String() + fmt.Sprintf("%s\n\n---\n\nSincerely,\n\n%s\n", content, author)
	default:
		return header.String() + content
	}
}
