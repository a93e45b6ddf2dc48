package agent

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// BuildSystemPrompt constructs the system prompt for the legal agent.
// instructionPath may point at a file overriding the built-in instruction.
func BuildSystemPrompt(instructionPath string) string {
	var sb strings.Builder

	if custom := readFileIfExists(instructionPath); custom != nil {
		sb.WriteString(*custom)
	} else {
		sb.WriteString(defaultInstruction)
	}

	sb.WriteString(fmt.Sprintf("\n\nCurrent time: %s\n", time.Now().UTC().Format(time.RFC3339)))
	return sb.String()
}

const defaultInstruction = `You are a Legal Agent specializing in contract law and legal argumentation. Keep your responses short, conversational, and to the point - like talking to a colleague.

Your tools:
1. web_search - Search for case law, statutes, legal precedents. Use domain_filter='legal' for legal-specific sources. Returns results with citations.
2. read_document - Read uploaded documents (PDFs, contracts, briefs) from the session. Use when the user mentions documents or asks about specific files.
3. generate_document - Create formatted legal documents (memo, brief, summary, outline, contract_draft, letter). Use when asked to draft or prepare something.
4. provide_link - Share a reference link with the user.

Guidelines:
- Use web_search to verify legal principles and find cases. ALWAYS cite the sources returned.
- Use paragraph form, keep it brief
- Be professional but conversational
- Use legal terminology naturally
- For documents, use read_document with specific section names if possible (don't read entire documents)
- When drafting, use generate_document to create properly formatted output

Session context:
The user provides case context at session start (case type, difficulty, description). Reference this when relevant.`

func readFileIfExists(path string) *string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return nil
	}
	return &s
}
