// internal/server/server_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/models"
	"opportunity-research/internal/pipeline"
	scoreopportunity "opportunity-research/internal/stages/score-opportunity"
	"opportunity-research/internal/store"
)

type stubExtractor struct{}

func (stubExtractor) Execute(ctx context.Context, rawQuery, countryCode string) (*models.ProductMetadata, error) {
	return &models.ProductMetadata{
		ProductName:          "Wireless Earbuds",
		ProductCategory:      "Consumer Electronics",
		HSCode:               "851830",
		TrendKeywords:        []string{"wireless earbuds"},
		NormalizedQuery:      "wireless earbuds",
		ExtractionConfidence: 0.9,
	}, nil
}

type stubSearcher struct{}

func (stubSearcher) SearchAll(ctx context.Context, query string) (models.PlatformResults, error) {
	return models.NewPlatformResults(), nil
}

type stubSynthesizer struct{}

func (stubSynthesizer) Execute(ctx context.Context, results models.PlatformResults) (*models.PriceAnalysis, error) {
	return &models.PriceAnalysis{Currency: "USD", Summary: "No product results found on any platform for this query."}, nil
}

type stubScorer struct{}

func (stubScorer) Execute(ctx context.Context, inputs *scoreopportunity.Inputs) *models.OpportunityReport {
	return &models.OpportunityReport{OpportunityScore: 74, OverallVerdict: "Good opportunity."}
}

// memStore mirrors the store behavior the handlers depend on.
type memStore struct {
	data        map[string]map[store.DataType]json.RawMessage
	assessments map[string]*store.StoredAssessment
}

func newMemStore() *memStore {
	return &memStore{
		data:        make(map[string]map[store.DataType]json.RawMessage),
		assessments: make(map[string]*store.StoredAssessment),
	}
}

func (m *memStore) SaveSessionData(ctx context.Context, sessionID string, dataType store.DataType, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if m.data[sessionID] == nil {
		m.data[sessionID] = make(map[store.DataType]json.RawMessage)
	}
	m.data[sessionID][dataType] = payload
	return nil
}

func (m *memStore) GetSessionData(ctx context.Context, sessionID string, dataType store.DataType) (json.RawMessage, error) {
	payload, ok := m.data[sessionID][dataType]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(sessionID, string(dataType))
	}
	return payload, nil
}

func (m *memStore) GetAllSessionData(ctx context.Context, sessionID string) (map[store.DataType]json.RawMessage, error) {
	result := make(map[store.DataType]json.RawMessage)
	for dt, payload := range m.data[sessionID] {
		result[dt] = payload
	}
	return result, nil
}

func (m *memStore) SaveAssessment(ctx context.Context, sessionID string, contextJSON, reportJSON json.RawMessage) error {
	m.assessments[sessionID] = &store.StoredAssessment{SessionID: sessionID, ContextJSON: contextJSON, ReportJSON: reportJSON}
	return nil
}

func (m *memStore) GetAssessment(ctx context.Context, sessionID string) (*store.StoredAssessment, error) {
	assessment, ok := m.assessments[sessionID]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(sessionID, "assessment")
	}
	return assessment, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.NewTestLogger(t)
	sessionStore := newMemStore()
	p := pipeline.New(stubExtractor{}, stubSearcher{}, stubSynthesizer{}, stubScorer{}, sessionStore, nil, nil, log)

	srv := httptest.NewServer(New(p, sessionStore, nil, log).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestInitEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/research/init", `{"raw_query":"wireless earbuds","country_code":"US"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var metadata models.ProductMetadata
	decodeBody(t, resp, &metadata)
	assert.NotEmpty(t, metadata.SessionID)
	assert.Equal(t, "Wireless Earbuds", metadata.ProductName)
}

func TestInitEndpoint_MissingQuery(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/research/init", `{"country_code":"US"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSourcingEndpoint_UnknownSession(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/research/no-such-session/sourcing", ``)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFullResearchFlow(t *testing.T) {
	srv := newTestServer(t)

	// Init.
	resp := postJSON(t, srv.URL+"/api/research/init", `{"raw_query":"wireless earbuds"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var metadata models.ProductMetadata
	decodeBody(t, resp, &metadata)
	sessionID := metadata.SessionID

	// Sourcing.
	resp = postJSON(t, fmt.Sprintf("%s/api/research/%s/sourcing", srv.URL, sessionID), ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Collaborator reports arrive.
	client := &http.Client{}
	for reportType, body := range map[string]string{
		"trends":     `{"keyword":"wireless earbuds","trend_score":72,"trend_direction":"up_right"}`,
		"regulation": `{"country_code":"US","hs_code":"851830","summary":"Standard compliance."}`,
		"market":     `{"country_code":"US","competition_level":"high","summary":"Crowded market."}`,
	} {
		req, err := http.NewRequest(http.MethodPut,
			fmt.Sprintf("%s/api/research/%s/reports/%s", srv.URL, sessionID, reportType),
			bytes.NewBufferString(body))
		require.NoError(t, err)
		putResp, err := client.Do(req)
		require.NoError(t, err)
		putResp.Body.Close()
		require.Equal(t, http.StatusNoContent, putResp.StatusCode, "report %s", reportType)
	}

	// Score.
	resp = postJSON(t, fmt.Sprintf("%s/api/research/%s/opportunity", srv.URL, sessionID), ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report models.OpportunityReport
	decodeBody(t, resp, &report)
	assert.InDelta(t, 74.0, report.OpportunityScore, 0.001)

	// Assessment is readable afterwards.
	getResp, err := http.Get(fmt.Sprintf("%s/api/research/%s/assessment", srv.URL, sessionID))
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestSaveReportEndpoint_RejectsUnknownType(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/research/session-1/reports/product_metadata", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssessmentEndpoint_Missing(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/research/no-such-session/assessment")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoryEndpoint_Unconfigured(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/history?q=earbuds")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}
