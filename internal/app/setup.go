package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RunSetup runs the interactive setup wizard to create moot.config.yaml.
func RunSetup() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Moot Backend Setup Wizard")
	fmt.Println("=========================")
	fmt.Println()

	// LLM provider.
	fmt.Print("LLM provider (gemini/openai) [gemini]: ")
	provider := readLine(reader)
	if provider == "" {
		provider = "gemini"
	}

	fmt.Print("LLM API key: ")
	apiKey := readLine(reader)

	model := "gemini-2.0-flash"
	if provider == "openai" {
		model = "gpt-4o-mini"
	}
	fmt.Printf("Model [%s]: ", model)
	if custom := readLine(reader); custom != "" {
		model = custom
	}

	// Speech.
	fmt.Print("Speech backend (elevenlabs/deepgram, leave empty to skip): ")
	voiceBackend := readLine(reader)
	voiceKey := ""
	if voiceBackend != "" {
		fmt.Printf("%s API key: ", voiceBackend)
		voiceKey = readLine(reader)
	}

	// Search.
	fmt.Print("Perplexity API key (leave empty for DuckDuckGo fallback): ")
	perplexityKey := readLine(reader)

	var sb strings.Builder
	sb.WriteString("data_dir: \"./moot.data\"\n")
	sb.WriteString("llm:\n")
	sb.WriteString(fmt.Sprintf("  provider: %q\n", provider))
	sb.WriteString(fmt.Sprintf("  api_key: %q\n", apiKey))
	sb.WriteString(fmt.Sprintf("  model: %q\n", model))
	sb.WriteString("  max_tokens: 8192\n")
	if voiceBackend != "" {
		sb.WriteString("voice:\n")
		sb.WriteString(fmt.Sprintf("  backend: %q\n", voiceBackend))
		if voiceBackend == "deepgram" {
			sb.WriteString(fmt.Sprintf("  deepgram_api_key: %q\n", voiceKey))
		} else {
			sb.WriteString(fmt.Sprintf("  elevenlabs_api_key: %q\n", voiceKey))
		}
	}
	if perplexityKey != "" {
		sb.WriteString("search:\n")
		sb.WriteString(fmt.Sprintf("  perplexity_api_key: %q\n", perplexityKey))
	}
	sb.WriteString("web:\n")
	sb.WriteString("  host: \"127.0.0.1\"\n")
	sb.WriteString("  port: 8000\n")

	configPath := "moot.config.yaml"
	if err := os.WriteFile(configPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", configPath)
	fmt.Println("Run 'mootd start' to begin.")
	return nil
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
