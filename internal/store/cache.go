// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"opportunity-research/internal/common/database"
	"opportunity-research/internal/common/logger"
)

// CachedStore is a read-through cache over a SessionStore. Session
// artifacts are immutable between writes, so cached reads serve the
// polling collaborators without hitting Postgres. Cache failures are
// logged and absorbed; the durable store stays authoritative.
type CachedStore struct {
	inner  SessionStore
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner SessionStore, redis *database.RedisClient, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		inner: inner,
		redis: redis,
		ttl:   ttl,
		logger: log.With(map[string]interface{}{
			"component": "session-cache",
		}),
	}
}

func cacheKey(sessionID string, dataType DataType) string {
	return fmt.Sprintf("session:%s:%s", sessionID, dataType)
}

func (s *CachedStore) SaveSessionData(ctx context.Context, sessionID string, dataType DataType, data interface{}) error {
	if err := s.inner.SaveSessionData(ctx, sessionID, dataType, data); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err == nil {
		err = s.redis.Set(ctx, cacheKey(sessionID, dataType), payload, s.ttl)
	}
	if err != nil {
		s.logger.Warn("cache write failed", map[string]interface{}{
			"sessionId": sessionID,
			"dataType":  string(dataType),
			"error":     err.Error(),
		})
	}
	return nil
}

func (s *CachedStore) GetSessionData(ctx context.Context, sessionID string, dataType DataType) (json.RawMessage, error) {
	if cached, err := s.redis.Get(ctx, cacheKey(sessionID, dataType)); err == nil {
		return json.RawMessage(cached), nil
	}

	payload, err := s.inner.GetSessionData(ctx, sessionID, dataType)
	if err != nil {
		return nil, err
	}

	if err := s.redis.Set(ctx, cacheKey(sessionID, dataType), []byte(payload), s.ttl); err != nil {
		s.logger.Warn("cache backfill failed", map[string]interface{}{
			"sessionId": sessionID,
			"dataType":  string(dataType),
			"error":     err.Error(),
		})
	}
	return payload, nil
}

func (s *CachedStore) GetAllSessionData(ctx context.Context, sessionID string) (map[DataType]json.RawMessage, error) {
	return s.inner.GetAllSessionData(ctx, sessionID)
}

func (s *CachedStore) SaveAssessment(ctx context.Context, sessionID string, contextJSON, reportJSON json.RawMessage) error {
	return s.inner.SaveAssessment(ctx, sessionID, contextJSON, reportJSON)
}

func (s *CachedStore) GetAssessment(ctx context.Context, sessionID string) (*StoredAssessment, error) {
	return s.inner.GetAssessment(ctx, sessionID)
}
