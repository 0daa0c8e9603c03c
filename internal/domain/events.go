package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for lookup events.
const (
	EventTypeLookupCompleted = "citation_lookup.completed"
)

// Event is a versioned envelope for events published about lookups.
type Event struct {
	EventID       string          `json:"event_id"`
	EventVersion  int             `json:"event_version"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// LookupCompletedPayload is the payload for citation_lookup.completed events.
type LookupCompletedPayload struct {
	LookupID         uuid.UUID       `json:"lookup_id"`
	Status           LookupStatus    `json:"status"`
	PaperTitle       string          `json:"paper_title"`
	PaperID          string          `json:"paper_id"`
	MatchedTitle     string          `json:"matched_title"`
	UsedAuthorFilter bool            `json:"used_author_filter"`
	CitingAuthorIDs  []string        `json:"citing_author_ids"`
	CitingAuthors    json.RawMessage `json:"citing_authors"`
}

// NewLookupCompletedEvent builds the completion event for a lookup result.
func NewLookupCompletedEvent(r *LookupResult) (*Event, error) {
	authors, err := r.CitingAuthorsJSON()
	if err != nil {
		return nil, err
	}
	payload := LookupCompletedPayload{
		LookupID:        r.ID,
		Status:          r.Status,
		PaperTitle:      r.Query.Title,
		CitingAuthorIDs: r.CitingAuthorIDs,
		CitingAuthors:   authors,
	}
	if r.Chosen != nil {
		payload.PaperID = r.Chosen.Match.PaperID
		payload.MatchedTitle = r.Chosen.Match.Title
		payload.UsedAuthorFilter = r.Chosen.UsedAuthorFilter
	}
	return NewEvent(EventTypeLookupCompleted, r.ID.String(), "citation_lookup", payload)
}
