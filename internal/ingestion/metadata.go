package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Metadata describes an ingested resume file.
type Metadata struct {
	Filename  string `json:"filename,omitempty"`
	MIMEType  string `json:"mime_type"`
	Timestamp string `json:"timestamp"` // RFC3339
	Hash      string `json:"hash"`      // SHA256 of the cleaned text
	Chars     int    `json:"chars"`
}

// NewMetadata stamps cleaned content with the current time and its hash.
func NewMetadata(content, filename, mimeType string) *Metadata {
	return &Metadata{
		Filename:  filename,
		MIMEType:  mimeType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      computeHash(content),
		Chars:     utf8.RuneCountInString(content),
	}
}

func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// ToJSON marshals Metadata to indented JSON.
func (m *Metadata) ToJSON() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal metadata")
	}
	return b, nil
}
