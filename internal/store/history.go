// internal/store/history.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"opportunity-research/internal/common/database"
	"opportunity-research/internal/common/logger"
)

// HistoryDocument is the denormalized assessment view kept in the
// search index for cross-session queries.
type HistoryDocument struct {
	SessionID        string    `json:"session_id"`
	Query            string    `json:"query"`
	ProductName      string    `json:"product_name"`
	CountryCode      string    `json:"country_code,omitempty"`
	OpportunityScore float64   `json:"opportunity_score"`
	Verdict          string    `json:"verdict"`
	AssessedAt       time.Time `json:"assessed_at"`
}

// HistoryIndex stores finished assessments in Elasticsearch so past
// research stays searchable by product name and query text.
type HistoryIndex struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewHistoryIndex(es *database.ElasticsearchClient, index string, log logger.Logger) *HistoryIndex {
	return &HistoryIndex{
		es:    es,
		index: index,
		logger: log.With(map[string]interface{}{
			"component": "history-index",
		}),
	}
}

// IndexAssessment writes one assessment document keyed by session id.
// Indexing is best-effort bookkeeping: the caller treats a failure as
// non-fatal, the durable store already holds the assessment.
func (h *HistoryIndex) IndexAssessment(ctx context.Context, doc HistoryDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal history document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      h.index,
		DocumentID: doc.SessionID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, h.es.Client)
	if err != nil {
		return fmt.Errorf("index assessment: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index assessment: %s", res.Status())
	}

	h.logger.Info("assessment indexed", map[string]interface{}{
		"sessionId": doc.SessionID,
		"score":     doc.OpportunityScore,
	})
	return nil
}

// SearchAssessments runs a match query over product name, query text and
// verdict, newest first.
func (h *HistoryIndex) SearchAssessments(ctx context.Context, text string, size int) ([]HistoryDocument, error) {
	if size <= 0 {
		size = 20
	}

	query := map[string]interface{}{
		"size": size,
		"sort": []map[string]interface{}{
			{"assessed_at": map[string]interface{}{"order": "desc"}},
		},
	}
	if text != "" {
		query["query"] = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"product_name", "query", "verdict"},
			},
		}
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal history query: %w", err)
	}

	res, err := h.es.Client.Search(
		h.es.Client.Search.WithContext(ctx),
		h.es.Client.Search.WithIndex(h.index),
		h.es.Client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search assessments: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search assessments: %s", res.Status())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source HistoryDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]HistoryDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
