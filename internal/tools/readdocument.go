package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ledongthuc/pdf"

	"github.com/moot-ai/moot-backend/internal/core"
)

const maxDocumentChars = 5000

// ReadDocumentTool reads content from uploaded documents (PDFs, contracts,
// briefs). Document names match by substring, or by glob pattern when the
// name contains wildcards.
type ReadDocumentTool struct {
	uploadsDir string
}

func NewReadDocumentTool(uploadsDir string) *ReadDocumentTool {
	return &ReadDocumentTool{uploadsDir: uploadsDir}
}

func (t *ReadDocumentTool) Name() string { return "read_document" }

func (t *ReadDocumentTool) Definition() core.ToolDefinition {
	return MakeDef("read_document",
		"Read content from an uploaded document in the session context.",
		map[string]any{
			"document_name": StringProp("Name or ID of the document to read (e.g., \"contract.pdf\", \"deposition_smith.txt\")"),
			"section":       StringProp("Optional specific section to extract (e.g., \"Article 5\", \"Arbitration Clause\")"),
		},
		[]string{"document_name"},
	)
}

func (t *ReadDocumentTool) Execute(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		DocumentName string `json:"document_name"`
		Section      string `json:"section"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return Error("invalid input: " + err.Error())
	}
	if params.DocumentName == "" {
		return Error("document_name is required")
	}

	entries, err := os.ReadDir(t.uploadsDir)
	if err != nil {
		return Success("No documents have been uploaded to this session.")
	}

	var available []string
	var match string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		available = append(available, e.Name())
		if match == "" && matchDocument(params.DocumentName, e.Name()) {
			match = e.Name()
		}
	}

	if match == "" {
		if len(available) > 0 {
			return Success(fmt.Sprintf("Document '%s' not found. Available documents: %s",
				params.DocumentName, strings.Join(available, ", ")))
		}
		return Success("No documents found. Please upload documents to the session first.")
	}

	path := filepath.Join(t.uploadsDir, match)
	var content string
	if strings.EqualFold(filepath.Ext(match), ".pdf") {
		content, err = extractPDFText(path)
		if err != nil {
			return Error(fmt.Sprintf("Error reading PDF: %v", err))
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return Error(fmt.Sprintf("Error reading document: %v", err))
		}
		content = string(data)
	}

	if params.Section != "" {
		if extract := extractSection(content, params.Section); extract != "" {
			return Success(fmt.Sprintf("**Section: %s**\n\n%s", params.Section, extract))
		}
		return Success(fmt.Sprintf("Section '%s' not found in document. Here's the full content:\n\n%s...",
			params.Section, core.Truncate(content, 2000)))
	}

	if len(content) > maxDocumentChars {
		return Success(fmt.Sprintf("**Document: %s**\n\n%s\n\n... [Document truncated. Ask for specific sections.]",
			match, content[:core.FloorCharBoundary(content, maxDocumentChars)]))
	}
	return Success(fmt.Sprintf("**Document: %s**\n\n%s", match, content))
}

func matchDocument(name, filename string) bool {
	if strings.ContainsAny(name, "*?[{") {
		ok, err := doublestar.Match(strings.ToLower(name), strings.ToLower(filename))
		return err == nil && ok
	}
	return strings.Contains(strings.ToLower(filename), strings.ToLower(name))
}

// extractSection pulls out the lines from the first mention of the section
// name to the next line that looks like a section header.
func extractSection(content, section string) string {
	sectionLower := strings.ToLower(section)
	var out []string
	inSection := false
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(strings.ToLower(line), sectionLower) {
			inSection = true
		} else if inSection && looksLikeHeader(line) {
			break
		}
		if inSection {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func looksLikeHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	r := []rune(trimmed)[0]
	return unicode.IsUpper(r)
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}
