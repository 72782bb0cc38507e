// internal/store/store.go

// Package store persists per-session research artifacts. The pipeline
// treats it as a pure key-value sink keyed by session id and data-type
// tag.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// DataType tags one kind of per-session artifact.
type DataType string

const (
	DataTypeProductMetadata DataType = "product_metadata"
	DataTypeSourcing        DataType = "sourcing"
	DataTypeTrends          DataType = "trends"
	DataTypeRegulation      DataType = "regulation"
	DataTypeImpositive      DataType = "impositive"
	DataTypeMarket          DataType = "market"
)

// StoredAssessment is a finished opportunity assessment row. Context and
// report are kept as the JSON documents they were produced as.
type StoredAssessment struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	ContextJSON json.RawMessage `json:"context_json"`
	ReportJSON  json.RawMessage `json:"report_json"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SessionStore persists session artifacts and finished assessments.
type SessionStore interface {
	// SaveSessionData upserts one artifact; the (session, data type)
	// pair is unique and later writes replace earlier ones.
	SaveSessionData(ctx context.Context, sessionID string, dataType DataType, data interface{}) error

	// GetSessionData returns the stored JSON document, or a
	// SESSION_NOT_FOUND error when the pair has never been written.
	GetSessionData(ctx context.Context, sessionID string, dataType DataType) (json.RawMessage, error)

	// GetAllSessionData returns every artifact stored for the session,
	// keyed by data type. Missing sessions yield an empty map.
	GetAllSessionData(ctx context.Context, sessionID string) (map[DataType]json.RawMessage, error)

	SaveAssessment(ctx context.Context, sessionID string, contextJSON, reportJSON json.RawMessage) error
	GetAssessment(ctx context.Context, sessionID string) (*StoredAssessment, error)
}
