package models

import "time"

// AuditEvent is a record of a notable action: a login, a logout, or a
// mutation of the catalog. SubjectID points at the affected user or book.
type AuditEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	SubjectID *string   `json:"subjectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
