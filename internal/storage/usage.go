package storage

import "database/sql"

// LLMUsageSummary aggregates token usage stats.
type LLMUsageSummary struct {
	Requests      int64
	InputTokens   int64
	OutputTokens  int64
	TotalTokens   int64
	LastRequestAt *string
}

// LogLLMUsage records an LLM API call.
func (d *Database) LogLLMUsage(userID, sessionID, provider, model string, inputTokens, outputTokens int, kind string) error {
	total := inputTokens + outputTokens
	_, err := d.exec(
		`INSERT INTO llm_usage_logs (user_id, session_id, provider, model, input_tokens, output_tokens, total_tokens, request_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, sessionID, provider, model, inputTokens, outputTokens, total, kind, nowRFC3339(),
	)
	return err
}

// GetLLMUsageSummary returns all-time or per-user usage summary.
// Pass userID="" for the global summary.
func (d *Database) GetLLMUsageSummary(userID string) (*LLMUsageSummary, error) {
	var q string
	var args []any
	if userID != "" {
		q = `SELECT COUNT(*), COALESCE(SUM(input_tokens),0), COALESCE(SUM(output_tokens),0),
		            COALESCE(SUM(total_tokens),0), MAX(created_at)
		     FROM llm_usage_logs WHERE user_id = ?`
		args = []any{userID}
	} else {
		q = `SELECT COUNT(*), COALESCE(SUM(input_tokens),0), COALESCE(SUM(output_tokens),0),
		            COALESCE(SUM(total_tokens),0), MAX(created_at)
		     FROM llm_usage_logs`
	}

	var s LLMUsageSummary
	err := d.queryRow(q, args...).Scan(&s.Requests, &s.InputTokens, &s.OutputTokens, &s.TotalTokens, &s.LastRequestAt)
	if err == sql.ErrNoRows {
		return &LLMUsageSummary{}, nil
	}
	return &s, err
}
