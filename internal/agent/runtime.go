package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/moot-ai/moot-backend/internal/config"
	"github.com/moot-ai/moot-backend/internal/core"
	"github.com/moot-ai/moot-backend/internal/llm"
	"github.com/moot-ai/moot-backend/internal/storage"
	"github.com/moot-ai/moot-backend/internal/stream"
	"github.com/moot-ai/moot-backend/internal/tools"
)

// Request identifies one chat turn.
type Request struct {
	UserID      string
	SessionID   string
	Message     string
	CaseContext *CaseContext
}

// Runtime runs the agentic loop for chat turns. It loads session history,
// streams model output as generation events, executes tool calls and
// persists the updated session when the turn completes.
type Runtime struct {
	cfg   *config.Config
	db    *storage.Database
	llm   llm.LLMProvider
	tools *tools.ToolRegistry
}

func NewRuntime(cfg *config.Config, db *storage.Database, provider llm.LLMProvider, registry *tools.ToolRegistry) *Runtime {
	return &Runtime{cfg: cfg, db: db, llm: provider, tools: registry}
}

// Process starts one turn. The returned source closes when the turn ends;
// its Err reports the terminal failure, if any.
func (r *Runtime) Process(ctx context.Context, req Request) stream.Source {
	s := newStream()
	go r.run(ctx, req, s)
	return s
}

func (r *Runtime) run(ctx context.Context, req Request, s *Stream) {
	cfg := r.cfg

	sess, err := r.db.GetOrCreateSession(req.UserID, req.SessionID)
	if err != nil {
		s.fail(fmt.Errorf("loading session: %w", err))
		return
	}

	messages, err := UnmarshalMessages(sess.MessagesJSON)
	if err != nil {
		// Corrupt session payload: start the conversation over rather than
		// wedging the session forever.
		log.Printf("[agent] session %s/%s: unreadable history, resetting: %v", req.UserID, req.SessionID, err)
		messages = nil
	}

	// Case context is folded into the first message of a session only;
	// afterwards the saved history already carries it.
	userText := req.Message
	if len(messages) == 0 && req.CaseContext != nil {
		userText = req.CaseContext.PromptBlock() + "\n\n" + userText
	}
	messages = append(messages, core.Message{Role: "user", Content: core.TextContent(userText)})

	// Compact if needed.
	if len(messages) > cfg.Agent.MaxSessionMessages {
		ArchiveConversation(cfg.DataDir, req.UserID, req.SessionID, messages)
		compacted, err := CompactMessages(ctx, r.llm, messages, cfg.Agent.CompactKeepRecent, cfg.Agent.CompactionTimeoutSecs)
		if err != nil {
			log.Printf("[agent] compaction error: %v", err)
		} else {
			messages = compacted
		}
	}

	systemPrompt := BuildSystemPrompt(cfg.Agent.InstructionPath)
	toolDefs := r.tools.Definitions()
	messages = llm.SanitizeMessages(messages)

	preview := req.Message
	if len(preview) > 200 {
		preview = preview[:core.FloorCharBoundary(preview, 200)] + "..."
	}
	log.Printf("[agent] session %s/%s: processing, %d messages, user query: %q",
		req.UserID, req.SessionID, len(messages), preview)

	emptyVisibleRetried := false

	for iteration := 0; iteration < cfg.Agent.MaxToolIterations; iteration++ {
		if ctx.Err() != nil {
			s.fail(ctx.Err())
			return
		}

		log.Printf("[agent] session %s/%s: iteration %d, sending %d messages to LLM (%s/%s)",
			req.UserID, req.SessionID, iteration, len(messages), r.llm.ProviderName(), r.llm.ModelName())

		resp, err := r.llm.SendMessageStream(ctx, systemPrompt, messages, toolDefs, func(delta string) {
			s.send(stream.TextDelta(delta, true), ctx.Done())
		})
		if err != nil {
			log.Printf("[agent] session %s/%s: LLM error at iteration %d: %v", req.UserID, req.SessionID, iteration, err)
			s.fail(fmt.Errorf("LLM call (iteration %d): %w", iteration, err))
			return
		}

		if resp.Usage != nil {
			log.Printf("[agent] session %s/%s: usage in=%d out=%d, stop_reason=%s",
				req.UserID, req.SessionID, resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.StopReason)
			r.db.LogLLMUsage(req.UserID, req.SessionID, r.llm.ProviderName(), r.llm.ModelName(),
				int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens), "agent_loop")
		}

		if resp.StopReason == "tool_use" {
			messages = r.executeTools(ctx, req, resp, messages, s)
			continue
		}

		// end_turn, max_tokens or an unknown stop reason: finish the turn.
		text := extractText(resp)

		if strings.TrimSpace(text) == "" && resp.StopReason == "end_turn" && !emptyVisibleRetried {
			emptyVisibleRetried = true
			messages = append(messages, core.Message{Role: "assistant", Content: responseToContent(resp)})
			messages = append(messages, core.Message{
				Role:    "user",
				Content: core.TextContent("Please provide a visible text answer to the user's request."),
			})
			continue
		}

		messages = append(messages, core.Message{Role: "assistant", Content: responseToContent(resp)})
		r.saveSession(req, messages)

		// Finalized turn text; consumers that already forwarded the partial
		// deltas treat it as a summary, not new content.
		s.send(stream.TextDelta(text, false), ctx.Done())
		s.finish()
		return
	}

	// Max iterations reached.
	r.saveSession(req, messages)
	note := fmt.Sprintf("Reached maximum tool iterations (%d). The task may be partially complete.", cfg.Agent.MaxToolIterations)
	s.send(stream.TextDelta(note, true), ctx.Done())
	s.send(stream.TextDelta(note, false), ctx.Done())
	s.finish()
}

// executeTools runs every tool call in resp and appends the assistant turn
// plus the tool results to the conversation.
func (r *Runtime) executeTools(ctx context.Context, req Request, resp *core.CompletionResponse,
	messages []core.Message, s *Stream) []core.Message {

	var assistantBlocks []core.ContentBlock
	var toolUses []core.ResponseContentBlock

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				assistantBlocks = append(assistantBlocks, core.TextBlock(block.Text))
			}
		case "tool_use":
			raw := json.RawMessage(block.Input)
			assistantBlocks = append(assistantBlocks, core.ToolUseBlock(block.ID, block.Name, raw))
			toolUses = append(toolUses, block)
		}
	}

	var toolNames []string
	for _, tu := range toolUses {
		toolNames = append(toolNames, tu.Name)
	}
	log.Printf("[agent] session %s/%s: tool_use, calling %d tools: %v", req.UserID, req.SessionID, len(toolUses), toolNames)

	messages = append(messages, core.Message{Role: "assistant", Content: core.BlocksContent(assistantBlocks)})

	var resultBlocks []core.ContentBlock
	for _, tu := range toolUses {
		s.send(stream.ToolInvocation(tu.Name), ctx.Done())

		inputPreview := core.Truncate(string(tu.Input), 300)
		log.Printf("[agent] session %s/%s: tool %s input: %s", req.UserID, req.SessionID, tu.Name, inputPreview)

		result := r.tools.Execute(ctx, tu.Name, tu.Input)

		log.Printf("[agent] session %s/%s: tool %s result (err=%v): %s",
			req.UserID, req.SessionID, tu.Name, result.IsError, core.Truncate(result.Content, 300))

		resultBlocks = append(resultBlocks, core.ToolResultBlock(tu.ID, result.Content, result.IsError))
	}

	messages = append(messages, core.Message{Role: "user", Content: core.BlocksContent(resultBlocks)})
	return messages
}

func (r *Runtime) saveSession(req Request, messages []core.Message) {
	data, err := MarshalMessages(messages)
	if err != nil {
		log.Printf("[agent] session %s/%s: save failed: %v", req.UserID, req.SessionID, err)
		return
	}
	if err := r.db.SaveSession(req.UserID, req.SessionID, data); err != nil {
		log.Printf("[agent] session %s/%s: save failed: %v", req.UserID, req.SessionID, err)
	}
}

func extractText(resp *core.CompletionResponse) string {
	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func responseToContent(resp *core.CompletionResponse) core.MessageContent {
	if len(resp.Content) == 1 && resp.Content[0].Type == "text" {
		return core.TextContent(resp.Content[0].Text)
	}
	var blocks []core.ContentBlock
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			blocks = append(blocks, core.TextBlock(b.Text))
		case "tool_use":
			raw := json.RawMessage(b.Input)
			blocks = append(blocks, core.ToolUseBlock(b.ID, b.Name, raw))
		}
	}
	return core.BlocksContent(blocks)
}
