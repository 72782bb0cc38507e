// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"opportunity-research/internal/common/database"
	apperrors "opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
)

const sessionDataUpsert = `
	INSERT INTO session_data (session_id, data_type, data_json, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (session_id, data_type)
	DO UPDATE SET data_json = EXCLUDED.data_json, created_at = EXCLUDED.created_at`

const assessmentUpsert = `
	INSERT INTO assessments (id, session_id, context_json, report_json, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (session_id)
	DO UPDATE SET id = EXCLUDED.id, context_json = EXCLUDED.context_json,
	              report_json = EXCLUDED.report_json, created_at = EXCLUDED.created_at`

// PostgresStore is the durable SessionStore implementation.
type PostgresStore struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewPostgresStore(db *database.PostgresClient, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db: db,
		logger: log.With(map[string]interface{}{
			"component": "postgres-store",
		}),
	}
}

// InitSchema creates the store's tables when they do not exist yet.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS session_data (
			session_id TEXT NOT NULL,
			data_type  TEXT NOT NULL,
			data_json  JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (session_id, data_type)
		)`,
		`CREATE TABLE IF NOT EXISTS assessments (
			id           TEXT PRIMARY KEY,
			session_id   TEXT UNIQUE NOT NULL,
			context_json JSONB NOT NULL,
			report_json  JSONB NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_session ON assessments(session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return apperrors.NewDatabaseWriteFailedError(err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveSessionData(ctx context.Context, sessionID string, dataType DataType, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return apperrors.NewDatabaseWriteFailedError(err)
	}

	if _, err := s.db.Exec(ctx, sessionDataUpsert, sessionID, string(dataType), payload, time.Now().UTC()); err != nil {
		s.logger.Error("session data write failed", map[string]interface{}{
			"sessionId": sessionID,
			"dataType":  string(dataType),
			"error":     err.Error(),
		})
		return apperrors.NewDatabaseWriteFailedError(err)
	}
	return nil
}

func (s *PostgresStore) GetSessionData(ctx context.Context, sessionID string, dataType DataType) (json.RawMessage, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT data_json FROM session_data WHERE session_id = $1 AND data_type = $2`,
		sessionID, string(dataType),
	).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewSessionNotFoundError(sessionID, string(dataType))
	}
	if err != nil {
		return nil, apperrors.NewDatabaseReadFailedError(err)
	}
	return json.RawMessage(payload), nil
}

func (s *PostgresStore) GetAllSessionData(ctx context.Context, sessionID string) (map[DataType]json.RawMessage, error) {
	rows, err := s.db.Query(ctx,
		`SELECT data_type, data_json FROM session_data WHERE session_id = $1`,
		sessionID,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseReadFailedError(err)
	}
	defer rows.Close()

	result := make(map[DataType]json.RawMessage)
	for rows.Next() {
		var dataType string
		var payload []byte
		if err := rows.Scan(&dataType, &payload); err != nil {
			return nil, apperrors.NewDatabaseReadFailedError(err)
		}
		result[DataType(dataType)] = json.RawMessage(payload)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseReadFailedError(err)
	}
	return result, nil
}

func (s *PostgresStore) SaveAssessment(ctx context.Context, sessionID string, contextJSON, reportJSON json.RawMessage) error {
	id := uuid.NewString()
	if _, err := s.db.Exec(ctx, assessmentUpsert, id, sessionID, []byte(contextJSON), []byte(reportJSON), time.Now().UTC()); err != nil {
		s.logger.Error("assessment write failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		return apperrors.NewDatabaseWriteFailedError(err)
	}
	return nil
}

func (s *PostgresStore) GetAssessment(ctx context.Context, sessionID string) (*StoredAssessment, error) {
	var assessment StoredAssessment
	var contextJSON, reportJSON []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, session_id, context_json, report_json, created_at FROM assessments WHERE session_id = $1`,
		sessionID,
	).Scan(&assessment.ID, &assessment.SessionID, &contextJSON, &reportJSON, &assessment.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewSessionNotFoundError(sessionID, "assessment")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseReadFailedError(err)
	}

	assessment.ContextJSON = json.RawMessage(contextJSON)
	assessment.ReportJSON = json.RawMessage(reportJSON)
	return &assessment, nil
}
