package storage

// UploadedFile is one uploaded document record.
type UploadedFile struct {
	FileID     string
	Filename   string
	StoredName string
	SizeBytes  int64
	CreatedAt  string
}

// InsertUploadedFile records an uploaded document.
func (d *Database) InsertUploadedFile(fileID, filename, storedName string, sizeBytes int64) error {
	_, err := d.exec(
		`INSERT INTO uploaded_files (file_id, filename, stored_name, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		fileID, filename, storedName, sizeBytes, nowRFC3339(),
	)
	return err
}

// ListUploadedFiles returns uploaded documents, newest first.
func (d *Database) ListUploadedFiles(limit int) ([]UploadedFile, error) {
	rows, err := d.query(
		`SELECT file_id, filename, stored_name, size_bytes, created_at
		 FROM uploaded_files ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []UploadedFile
	for rows.Next() {
		var f UploadedFile
		if err := rows.Scan(&f.FileID, &f.Filename, &f.StoredName, &f.SizeBytes, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteUploadedFilesBefore drops records older than the cutoff and returns
// the stored names so the caller can remove the files themselves.
func (d *Database) DeleteUploadedFilesBefore(cutoff string) ([]string, error) {
	rows, err := d.query(
		`SELECT stored_name FROM uploaded_files WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return nil, err
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := d.exec(`DELETE FROM uploaded_files WHERE created_at < ?`, cutoff); err != nil {
		return names, err
	}
	return names, nil
}
