package models

import (
	"time"

	"github.com/lib/pq"
)

// DocumentType defines what may be uploaded: whether a subject must be
// specified, whether a reviewer pass is required, and an extension
// allow-list. An empty allow-list means any extension is accepted.
type DocumentType struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	RequiresSubject   bool           `db:"requires_subject" json:"requires_subject"`
	RequiresReview    bool           `db:"requires_review" json:"requires_review"`
	AllowedExtensions pq.StringArray `db:"allowed_extensions" json:"allowed_extensions"`
	ExtensionsLabel   string         `db:"extensions_label" json:"extensions_label"`
	Active            bool           `db:"active" json:"active"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// AcceptsExtension reports whether the given lowercase extension (without
// dot) passes the allow-list. An empty list accepts anything.
func (t DocumentType) AcceptsExtension(ext string) bool {
	if len(t.AllowedExtensions) == 0 {
		return true
	}
	for _, allowed := range t.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}
