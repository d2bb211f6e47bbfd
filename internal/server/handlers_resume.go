package server

import (
	"io"
	"net/http"

	"github.com/jonathan/placement-prep/internal/ingestion"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// handleResumeUpload extracts text from an uploaded resume so the client can
// place it in the analysis form. Nothing is stored.
func (s *Server) handleResumeUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ingestion.MaxResumeBytes+(64<<10))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, ingestion.ErrFileTooLarge)
			return
		}
		s.writeError(w, &ErrValidation{Field: "file", Message: "a multipart file field is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, ingestion.MaxResumeBytes+1))
	if err != nil {
		s.writeError(w, err)
		return
	}

	resume, err := ingestion.IngestResume(header.Filename, data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"filename":  resume.Metadata.Filename,
		"mime_type": resume.Metadata.MIMEType,
		"chars":     resume.Metadata.Chars,
	}).Info("resume ingested")
	s.jsonResponse(w, http.StatusOK, resume)
}
