// internal/store/cache_test.go
package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opportunity-research/internal/common/database"
	apperrors "opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
)

// memoryStore is an in-memory SessionStore that counts reads so cache
// hits are observable.
type memoryStore struct {
	data        map[string]json.RawMessage
	assessments map[string]*StoredAssessment
	reads       int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		data:        make(map[string]json.RawMessage),
		assessments: make(map[string]*StoredAssessment),
	}
}

func (m *memoryStore) SaveSessionData(ctx context.Context, sessionID string, dataType DataType, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.data[cacheKey(sessionID, dataType)] = payload
	return nil
}

func (m *memoryStore) GetSessionData(ctx context.Context, sessionID string, dataType DataType) (json.RawMessage, error) {
	m.reads++
	payload, ok := m.data[cacheKey(sessionID, dataType)]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(sessionID, string(dataType))
	}
	return payload, nil
}

func (m *memoryStore) GetAllSessionData(ctx context.Context, sessionID string) (map[DataType]json.RawMessage, error) {
	return nil, nil
}

func (m *memoryStore) SaveAssessment(ctx context.Context, sessionID string, contextJSON, reportJSON json.RawMessage) error {
	m.assessments[sessionID] = &StoredAssessment{SessionID: sessionID, ContextJSON: contextJSON, ReportJSON: reportJSON}
	return nil
}

func (m *memoryStore) GetAssessment(ctx context.Context, sessionID string) (*StoredAssessment, error) {
	assessment, ok := m.assessments[sessionID]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(sessionID, "assessment")
	}
	return assessment, nil
}

func newCachedStore(t *testing.T) (*CachedStore, *memoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	inner := newMemoryStore()
	return NewCachedStore(inner, client, 15*time.Minute, logger.NewTestLogger(t)), inner, mr
}

func TestCachedStore_WriteThrough(t *testing.T) {
	cached, inner, mr := newCachedStore(t)

	err := cached.SaveSessionData(context.Background(), "session-1", DataTypeProductMetadata, map[string]string{
		"product_name": "Earbuds",
	})
	require.NoError(t, err)

	// Durable store and cache both hold the document.
	assert.Contains(t, inner.data, cacheKey("session-1", DataTypeProductMetadata))
	cachedValue, err := mr.Get(cacheKey("session-1", DataTypeProductMetadata))
	require.NoError(t, err)
	assert.JSONEq(t, `{"product_name":"Earbuds"}`, cachedValue)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	cached, inner, _ := newCachedStore(t)

	require.NoError(t, inner.SaveSessionData(context.Background(), "session-1", DataTypeSourcing, map[string]int{"total": 3}))

	first, err := cached.GetSessionData(context.Background(), "session-1", DataTypeSourcing)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":3}`, string(first))
	assert.Equal(t, 1, inner.reads)

	// Second read is served from the cache.
	second, err := cached.GetSessionData(context.Background(), "session-1", DataTypeSourcing)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":3}`, string(second))
	assert.Equal(t, 1, inner.reads)
}

func TestCachedStore_ExpiredEntryFallsBack(t *testing.T) {
	cached, inner, mr := newCachedStore(t)

	require.NoError(t, cached.SaveSessionData(context.Background(), "session-1", DataTypeTrends, map[string]int{"trend_score": 72}))
	mr.FastForward(16 * time.Minute)

	payload, err := cached.GetSessionData(context.Background(), "session-1", DataTypeTrends)
	require.NoError(t, err)
	assert.JSONEq(t, `{"trend_score":72}`, string(payload))
	assert.Equal(t, 1, inner.reads)
}

func TestCachedStore_MissPropagatesNotFound(t *testing.T) {
	cached, _, _ := newCachedStore(t)

	_, err := cached.GetSessionData(context.Background(), "session-1", DataTypeMarket)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSessionNotFound, apperrors.CodeOf(err))
}

func TestCachedStore_RedisDownDegradesToInner(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	require.NoError(t, inner.SaveSessionData(context.Background(), "session-1", DataTypeRegulation, map[string]string{"hs_code": "851830"}))
	mr.Close()

	// Writes and reads still work against the durable store.
	require.NoError(t, cached.SaveSessionData(context.Background(), "session-1", DataTypeMarket, map[string]string{"competition_level": "high"}))

	payload, err := cached.GetSessionData(context.Background(), "session-1", DataTypeRegulation)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hs_code":"851830"}`, string(payload))
}

func TestCachedStore_AssessmentsDelegate(t *testing.T) {
	cached, inner, _ := newCachedStore(t)

	require.NoError(t, cached.SaveAssessment(context.Background(), "session-1",
		json.RawMessage(`{}`), json.RawMessage(`{"opportunity_score":74}`)))
	assert.Contains(t, inner.assessments, "session-1")

	assessment, err := cached.GetAssessment(context.Background(), "session-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"opportunity_score":74}`, string(assessment.ReportJSON))
}
