package storage

import "database/sql"

// UpsertAuthPasswordHash sets the access password hash.
func (d *Database) UpsertAuthPasswordHash(hash string) error {
	now := nowRFC3339()
	_, err := d.exec(
		`INSERT INTO auth_passwords (id, password_hash, created_at, updated_at)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET password_hash = excluded.password_hash, updated_at = excluded.updated_at`,
		hash, now, now,
	)
	return err
}

// GetAuthPasswordHash returns the access password hash.
func (d *Database) GetAuthPasswordHash() (string, bool, error) {
	var hash string
	err := d.queryRow(`SELECT password_hash FROM auth_passwords WHERE id = 1`).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	return hash, err == nil, err
}

// CreateAuthSession creates a new web session.
func (d *Database) CreateAuthSession(sessionID, label, expiresAt string) error {
	now := nowRFC3339()
	_, err := d.exec(
		`INSERT INTO auth_sessions (session_id, label, created_at, expires_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, label, now, expiresAt, now,
	)
	return err
}

// ValidateAuthSession checks if a session is valid and updates last_seen.
func (d *Database) ValidateAuthSession(sessionID string) (bool, error) {
	now := nowRFC3339()
	var expiresAt string
	var revokedAt sql.NullString
	err := d.queryRow(
		`SELECT expires_at, revoked_at FROM auth_sessions WHERE session_id = ?`, sessionID,
	).Scan(&expiresAt, &revokedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if revokedAt.Valid {
		return false, nil
	}
	if expiresAt < now {
		return false, nil
	}
	// Update last_seen.
	d.exec(`UPDATE auth_sessions SET last_seen_at = ? WHERE session_id = ?`, now, sessionID)
	return true, nil
}

// RevokeAuthSession revokes a session.
func (d *Database) RevokeAuthSession(sessionID string) error {
	_, err := d.exec(
		`UPDATE auth_sessions SET revoked_at = ? WHERE session_id = ?`,
		nowRFC3339(), sessionID,
	)
	return err
}
