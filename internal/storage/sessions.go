package storage

import "database/sql"

// Session holds one conversation session.
type Session struct {
	UserID       string
	SessionID    string
	MessagesJSON string
	CreatedAt    string
	UpdatedAt    string
}

// SessionMeta holds session metadata for listing.
type SessionMeta struct {
	SessionID string
	CreatedAt string
	UpdatedAt string
}

// GetOrCreateSession loads a session, creating an empty one if absent.
func (d *Database) GetOrCreateSession(userID, sessionID string) (*Session, error) {
	sess, found, err := d.LoadSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if found {
		return sess, nil
	}

	now := nowRFC3339()
	if _, err := d.exec(
		`INSERT OR IGNORE INTO sessions (user_id, session_id, messages_json, created_at, updated_at)
		 VALUES (?, ?, '', ?, ?)`,
		userID, sessionID, now, now,
	); err != nil {
		return nil, err
	}
	return &Session{UserID: userID, SessionID: sessionID, CreatedAt: now, UpdatedAt: now}, nil
}

// SaveSession upserts session state.
func (d *Database) SaveSession(userID, sessionID, messagesJSON string) error {
	now := nowRFC3339()
	_, err := d.exec(
		`INSERT INTO sessions (user_id, session_id, messages_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, session_id) DO UPDATE SET
		   messages_json = excluded.messages_json,
		   updated_at = excluded.updated_at`,
		userID, sessionID, messagesJSON, now, now,
	)
	return err
}

// LoadSession returns one session.
func (d *Database) LoadSession(userID, sessionID string) (*Session, bool, error) {
	var s Session
	err := d.queryRow(
		`SELECT user_id, session_id, messages_json, created_at, updated_at
		 FROM sessions WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	).Scan(&s.UserID, &s.SessionID, &s.MessagesJSON, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

// ListSessions returns a user's sessions, newest first.
func (d *Database) ListSessions(userID string, limit int) ([]SessionMeta, error) {
	rows, err := d.query(
		`SELECT session_id, created_at, updated_at
		 FROM sessions WHERE user_id = ? ORDER BY updated_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var m SessionMeta
		if err := rows.Scan(&m.SessionID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// DeleteSession removes a session and its usage logs.
func (d *Database) DeleteSession(userID, sessionID string) error {
	return d.execTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM sessions WHERE user_id = ? AND session_id = ?`, userID, sessionID); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM llm_usage_logs WHERE user_id = ? AND session_id = ?`, userID, sessionID)
		return err
	})
}
