// internal/pipeline/pipeline.go

// Package pipeline sequences one research session: metadata extraction,
// provider fan-out, price synthesis and opportunity scoring. There is no
// cross-request state; each invocation is independent given its inputs
// and whatever the session store already holds.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/common/metrics"
	"opportunity-research/internal/common/observability"
	"opportunity-research/internal/models"
	scoreopportunity "opportunity-research/internal/stages/score-opportunity"
	"opportunity-research/internal/store"
)

// MetadataExtractor is the extract-metadata stage.
type MetadataExtractor interface {
	Execute(ctx context.Context, rawQuery, countryCode string) (*models.ProductMetadata, error)
}

// ProviderSearcher is the concurrent fan-out over all platforms.
type ProviderSearcher interface {
	SearchAll(ctx context.Context, query string) (models.PlatformResults, error)
}

// PriceSynthesizer is the synthesize-prices stage.
type PriceSynthesizer interface {
	Execute(ctx context.Context, results models.PlatformResults) (*models.PriceAnalysis, error)
}

// OpportunityScorer is the score-opportunity stage. It never fails.
type OpportunityScorer interface {
	Execute(ctx context.Context, inputs *scoreopportunity.Inputs) *models.OpportunityReport
}

// AssessmentIndexer mirrors finished assessments into the history index.
type AssessmentIndexer interface {
	IndexAssessment(ctx context.Context, doc store.HistoryDocument) error
}

// SourcingResult is the outcome of the sourcing phase for one session.
type SourcingResult struct {
	SessionID       string                 `json:"session_id"`
	PlatformResults models.PlatformResults `json:"platform_results"`
	PriceAnalysis   *models.PriceAnalysis  `json:"price_analysis"`
}

// Pipeline wires the stages to the session store.
type Pipeline struct {
	extractor MetadataExtractor
	searcher  ProviderSearcher
	prices    PriceSynthesizer
	scorer    OpportunityScorer
	store     store.SessionStore
	history   AssessmentIndexer
	obs       *observability.Observability
	logger    logger.Logger
}

func New(
	extractor MetadataExtractor,
	searcher ProviderSearcher,
	prices PriceSynthesizer,
	scorer OpportunityScorer,
	sessionStore store.SessionStore,
	history AssessmentIndexer,
	obs *observability.Observability,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		searcher:  searcher,
		prices:    prices,
		scorer:    scorer,
		store:     sessionStore,
		history:   history,
		obs:       obs,
		logger: log.With(map[string]interface{}{
			"component": "pipeline",
		}),
	}
}

// InitSession starts a research session: it extracts product metadata
// from the raw query and persists it under a fresh session id. Metadata
// extraction is a required gate, so its failure fails the whole call.
func (p *Pipeline) InitSession(ctx context.Context, query models.SearchQuery) (*models.ProductMetadata, error) {
	start := time.Now()
	sessionID := uuid.NewString()

	metadata, err := p.extractor.Execute(ctx, query.RawQuery, query.CountryCode)
	if err != nil {
		p.record(ctx, "init_session", "error", start)
		return nil, err
	}
	metadata.SessionID = sessionID

	if err := p.store.SaveSessionData(ctx, sessionID, store.DataTypeProductMetadata, metadata); err != nil {
		p.record(ctx, "init_session", "error", start)
		return nil, err
	}

	p.logger.Info("session initialized", map[string]interface{}{
		"sessionId":   sessionID,
		"productName": metadata.ProductName,
	})
	p.record(ctx, "init_session", "success", start)
	return metadata, nil
}

// RunSourcing fans the session's normalized query out to every platform
// and synthesizes the price analysis. The fan-out itself cannot fail;
// price synthesis can, and that failure is the caller's.
func (p *Pipeline) RunSourcing(ctx context.Context, sessionID string) (*SourcingResult, error) {
	start := time.Now()

	metadata, err := p.loadMetadata(ctx, sessionID)
	if err != nil {
		p.record(ctx, "run_sourcing", "error", start)
		return nil, err
	}

	results, err := p.searcher.SearchAll(ctx, metadata.NormalizedQuery)
	if err != nil {
		p.record(ctx, "run_sourcing", "error", start)
		return nil, err
	}

	analysis, err := p.prices.Execute(ctx, results)
	if err != nil {
		p.record(ctx, "run_sourcing", "error", start)
		return nil, err
	}
	analysis.SessionID = sessionID

	sourcing := &SourcingResult{
		SessionID:       sessionID,
		PlatformResults: results,
		PriceAnalysis:   analysis,
	}
	if err := p.store.SaveSessionData(ctx, sessionID, store.DataTypeSourcing, sourcing); err != nil {
		p.record(ctx, "run_sourcing", "error", start)
		return nil, err
	}

	p.logger.Info("sourcing completed", map[string]interface{}{
		"sessionId":    sessionID,
		"totalResults": results.TotalCount(),
	})
	p.record(ctx, "run_sourcing", "success", start)
	return sourcing, nil
}

// ScoreSession synthesizes the terminal opportunity assessment from the
// five stored reports. Price, trend, regulation and market reports are
// required; the impositive report is optional. The scoring stage itself
// cannot fail, so the only failure modes here are missing inputs and
// store writes.
func (p *Pipeline) ScoreSession(ctx context.Context, sessionID string) (*models.OpportunityReport, error) {
	start := time.Now()

	all, err := p.store.GetAllSessionData(ctx, sessionID)
	if err != nil {
		p.record(ctx, "score_session", "error", start)
		return nil, err
	}

	inputs, err := buildScoringInputs(sessionID, all)
	if err != nil {
		p.record(ctx, "score_session", "error", start)
		return nil, err
	}

	report := p.scorer.Execute(ctx, inputs)
	report.SessionID = sessionID

	reportJSON, err := json.Marshal(report)
	if err != nil {
		p.record(ctx, "score_session", "error", start)
		return nil, apperrors.NewDatabaseWriteFailedError(err)
	}
	contextJSON, err := json.Marshal(all)
	if err != nil {
		p.record(ctx, "score_session", "error", start)
		return nil, apperrors.NewDatabaseWriteFailedError(err)
	}

	if err := p.store.SaveAssessment(ctx, sessionID, contextJSON, reportJSON); err != nil {
		p.record(ctx, "score_session", "error", start)
		return nil, err
	}

	p.indexAssessment(ctx, sessionID, all, report)

	p.logger.Info("session scored", map[string]interface{}{
		"sessionId": sessionID,
		"score":     report.OpportunityScore,
	})
	p.record(ctx, "score_session", "success", start)
	return report, nil
}

func (p *Pipeline) loadMetadata(ctx context.Context, sessionID string) (*models.ProductMetadata, error) {
	payload, err := p.store.GetSessionData(ctx, sessionID, store.DataTypeProductMetadata)
	if err != nil {
		return nil, err
	}

	var metadata models.ProductMetadata
	if err := json.Unmarshal(payload, &metadata); err != nil {
		return nil, apperrors.NewDatabaseReadFailedError(err)
	}
	return &metadata, nil
}

// buildScoringInputs decodes the stored reports into the scoring stage's
// input bundle, enforcing which reports are required.
func buildScoringInputs(sessionID string, all map[store.DataType]json.RawMessage) (*scoreopportunity.Inputs, error) {
	var sourcing SourcingResult
	if err := decodeRequired(sessionID, all, store.DataTypeSourcing, &sourcing); err != nil {
		return nil, err
	}
	if sourcing.PriceAnalysis == nil {
		return nil, apperrors.NewSessionNotFoundError(sessionID, string(store.DataTypeSourcing))
	}

	var trend models.TrendReport
	if err := decodeRequired(sessionID, all, store.DataTypeTrends, &trend); err != nil {
		return nil, err
	}

	var regulation models.RegulationReport
	if err := decodeRequired(sessionID, all, store.DataTypeRegulation, &regulation); err != nil {
		return nil, err
	}

	var market models.MarketReport
	if err := decodeRequired(sessionID, all, store.DataTypeMarket, &market); err != nil {
		return nil, err
	}

	inputs := &scoreopportunity.Inputs{
		PriceAnalysis: sourcing.PriceAnalysis,
		Trend:         &trend,
		Regulation:    &regulation,
		Market:        &market,
	}

	if payload, ok := all[store.DataTypeImpositive]; ok {
		var impositive models.ImpositiveReport
		if err := json.Unmarshal(payload, &impositive); err != nil {
			return nil, apperrors.NewDatabaseReadFailedError(err)
		}
		inputs.Impositive = &impositive
	}
	return inputs, nil
}

func decodeRequired(sessionID string, all map[store.DataType]json.RawMessage, dataType store.DataType, out interface{}) error {
	payload, ok := all[dataType]
	if !ok {
		return apperrors.NewSessionNotFoundError(sessionID, string(dataType))
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apperrors.NewDatabaseReadFailedError(err)
	}
	return nil
}

// indexAssessment mirrors the finished assessment into the history
// index. Best effort: the durable store already holds the assessment,
// so an indexing failure is logged and absorbed.
func (p *Pipeline) indexAssessment(ctx context.Context, sessionID string, all map[store.DataType]json.RawMessage, report *models.OpportunityReport) {
	if p.history == nil {
		return
	}

	doc := store.HistoryDocument{
		SessionID:        sessionID,
		OpportunityScore: report.OpportunityScore,
		Verdict:          report.OverallVerdict,
		AssessedAt:       time.Now().UTC(),
	}
	if payload, ok := all[store.DataTypeProductMetadata]; ok {
		var metadata models.ProductMetadata
		if err := json.Unmarshal(payload, &metadata); err == nil {
			doc.Query = metadata.NormalizedQuery
			doc.ProductName = metadata.ProductName
		}
	}

	if err := p.history.IndexAssessment(ctx, doc); err != nil {
		p.logger.Warn("assessment indexing failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
	}
}

func (p *Pipeline) record(ctx context.Context, operation, status string, start time.Time) {
	metrics.PipelineRuns.WithLabelValues(operation, status).Inc()
	if p.obs != nil {
		p.obs.RecordRequest(ctx, operation, status)
		p.obs.RecordDuration(ctx, operation, time.Since(start))
	}
}
