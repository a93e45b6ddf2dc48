package web

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// handleUploadPDF stores an uploaded PDF under the uploads directory and
// records it for retention. The stored name is prefixed with the file id so
// concurrent uploads of the same filename never collide.
func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.Config.Web.MaxUploadSizeMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if filename == "" || !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, "only PDF files are accepted", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(s.Config.UploadsDir(), 0o755); err != nil {
		jsonError(w, "storage error", http.StatusInternalServerError)
		return
	}

	fileID := uuid.NewString()
	storedName := fileID + "_" + filename
	dst, err := os.Create(filepath.Join(s.Config.UploadsDir(), storedName))
	if err != nil {
		jsonError(w, "storage error", http.StatusInternalServerError)
		return
	}

	size, err := io.Copy(dst, file)
	closeErr := dst.Close()
	if err != nil || closeErr != nil {
		os.Remove(dst.Name())
		jsonError(w, "upload failed", http.StatusInternalServerError)
		return
	}

	if err := s.DB.InsertUploadedFile(fileID, filename, storedName, size); err != nil {
		log.Printf("[web] recording upload %s failed: %v", storedName, err)
	}

	log.Printf("[web] stored upload %s (%d bytes)", storedName, size)
	jsonOK(w, map[string]string{
		"file_id":  fileID,
		"filename": filename,
		"status":   "ready",
	})
}

// handleGetDocument serves a generated or uploaded document by stored name.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	name := sanitizeFilename(chi.URLParam(r, "name"))
	if name == "" {
		jsonError(w, "invalid document name", http.StatusBadRequest)
		return
	}

	for _, dir := range []string{s.Config.GeneratedDir(), s.Config.UploadsDir()} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
	}
	jsonError(w, "document not found", http.StatusNotFound)
}

// sanitizeFilename strips any path components, leaving a bare filename.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}
