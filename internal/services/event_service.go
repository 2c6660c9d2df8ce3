package services

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/libreshelf/bookstore-be/internal/models"
	"github.com/libreshelf/bookstore-be/internal/websocket"
)

// EventServiceProvider defines the interface for audit event services.
type EventServiceProvider interface {
	RecordEvent(eventType, level, message string, subjectID *string)
	GetRecentEvents(limit int) ([]models.AuditEvent, error)
}

// EventService records audit events and pushes them to the live feed.
type EventService struct {
	db  *sql.DB
	hub *websocket.Hub
}

// NewEventService creates a new EventService. hub may be nil when no live
// feed is wanted (tests).
func NewEventService(db *sql.DB, hub *websocket.Hub) *EventService {
	return &EventService{db: db, hub: hub}
}

// RecordEvent logs a new audit event. Auditing is best-effort: a failed
// write is logged but never fails the action being audited.
func (s *EventService) RecordEvent(eventType, level, message string, subjectID *string) {
	event := models.AuditEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		SubjectID: subjectID,
		CreatedAt: time.Now().UTC(),
	}

	stmt, err := s.db.Prepare("INSERT INTO audit_events (id, type, level, message, subject_id, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to record audit event")
		return
	}
	defer stmt.Close()

	if _, err := stmt.Exec(event.ID, event.Type, event.Level, event.Message, event.SubjectID, event.CreatedAt); err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to record audit event")
		return
	}

	if s.hub != nil {
		frame, err := json.Marshal(websocket.Message{Action: "audit_event", Payload: event})
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode audit event for feed")
			return
		}
		s.hub.Broadcast <- frame
	}
}

// GetRecentEvents retrieves the most recent audit events.
func (s *EventService) GetRecentEvents(limit int) ([]models.AuditEvent, error) {
	rows, err := s.db.Query("SELECT id, type, level, message, subject_id, created_at FROM audit_events ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var event models.AuditEvent
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.SubjectID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
