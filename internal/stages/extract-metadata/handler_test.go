// internal/stages/extract-metadata/handler_test.go
package extractmetadata

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	apperrors "opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/models"
)

// fakeCompleter records the prompts it receives and returns a canned
// object, or an error, without touching the network.
type fakeCompleter struct {
	calls      int
	lastSystem string
	lastUser   string
	lastSchema map[string]interface{}
	result     map[string]interface{}
	err        error
}

func (f *fakeCompleter) StructuredComplete(ctx context.Context, system, user string, schema map[string]interface{}, maxTokens int) (map[string]interface{}, error) {
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	f.lastSchema = schema
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func validMetadataObject() map[string]interface{} {
	return map[string]interface{}{
		"product_name":           "Wireless Earbuds",
		"product_category":       "Consumer Electronics",
		"hs_code":                "851830",
		"regulatory_flags":       []interface{}{"FCC", "CE"},
		"import_regulations":     []interface{}{"FCC certification required for import"},
		"impositive_regulations": []interface{}{"Duty-free under HS 8518.30 in the US"},
		"market_search_terms":    []interface{}{"wireless earbuds market"},
		"trend_keywords":         []interface{}{"wireless earbuds", "bluetooth earbuds"},
		"normalized_query":       "wireless earbuds",
		"extraction_confidence":  0.92,
	}
}

func TestExecute_ExtractsMetadata(t *testing.T) {
	completer := &fakeCompleter{result: validMetadataObject()}
	handler := NewHandler(&Config{MaxTokens: 2048}, completer, logger.NewTestLogger(t))

	metadata, err := handler.Execute(context.Background(), "wireless earbuds", "US")
	require.NoError(t, err)

	assert.Equal(t, 1, completer.calls)
	assert.Contains(t, completer.lastSystem, "wholesale product research assistant")
	assert.Contains(t, completer.lastUser, `"wireless earbuds"`)
	assert.Contains(t, completer.lastUser, "located in US")
	assert.Equal(t, metadataSchema, completer.lastSchema)

	assert.Equal(t, "Wireless Earbuds", metadata.ProductName)
	assert.Equal(t, "851830", metadata.HSCode)
	assert.Equal(t, []string{"wireless earbuds", "bluetooth earbuds"}, metadata.TrendKeywords)
	assert.Equal(t, "wireless earbuds", metadata.NormalizedQuery)
	assert.InDelta(t, 0.92, metadata.ExtractionConfidence, 0.001)
}

func TestExecute_OmitsCountryContextWhenAbsent(t *testing.T) {
	completer := &fakeCompleter{result: validMetadataObject()}
	handler := NewHandler(&Config{MaxTokens: 2048}, completer, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), "wireless earbuds", "")
	require.NoError(t, err)
	assert.NotContains(t, completer.lastUser, "located in")
}

func TestExecute_CompletionErrorPropagates(t *testing.T) {
	// No fallback: this stage gates the rest of the request.
	completer := &fakeCompleter{err: apperrors.NewCompletionFailedError("status 400")}
	handler := NewHandler(&Config{MaxTokens: 2048}, completer, logger.NewTestLogger(t))

	metadata, err := handler.Execute(context.Background(), "wireless earbuds", "US")
	require.Error(t, err)
	assert.Nil(t, metadata)
	assert.Equal(t, apperrors.ErrCodeCompletionFailed, apperrors.CodeOf(err))
}

func TestMetadataSchema_RejectsContractViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(obj map[string]interface{})
	}{
		{"missing product name", func(obj map[string]interface{}) { delete(obj, "product_name") }},
		{"confidence above one", func(obj map[string]interface{}) { obj["extraction_confidence"] = 1.2 }},
		{"confidence below zero", func(obj map[string]interface{}) { obj["extraction_confidence"] = -0.1 }},
		{"empty trend keywords", func(obj map[string]interface{}) { obj["trend_keywords"] = []interface{}{} }},
		{"too many trend keywords", func(obj map[string]interface{}) {
			obj["trend_keywords"] = []interface{}{"a", "b", "c", "d", "e", "f"}
		}},
		{"non-numeric hs code", func(obj map[string]interface{}) { obj["hs_code"] = "85XX30" }},
		{"short hs code", func(obj map[string]interface{}) { obj["hs_code"] = "8518" }},
		{"empty normalized query", func(obj map[string]interface{}) { obj["normalized_query"] = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := validMetadataObject()
			tt.mutate(obj)

			result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(metadataSchema), gojsonschema.NewGoLoader(obj))
			require.NoError(t, err)
			assert.False(t, result.Valid())
		})
	}
}

func TestMetadataSchema_AcceptsUnknownHSCode(t *testing.T) {
	obj := validMetadataObject()
	obj["hs_code"] = models.UnknownHSCode

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(metadataSchema), gojsonschema.NewGoLoader(obj))
	require.NoError(t, err)
	assert.True(t, result.Valid())
}

func TestMetadataRoundTrip(t *testing.T) {
	completer := &fakeCompleter{result: validMetadataObject()}
	handler := NewHandler(&Config{MaxTokens: 2048}, completer, logger.NewTestLogger(t))

	metadata, err := handler.Execute(context.Background(), "wireless earbuds", "US")
	require.NoError(t, err)

	// Serializing and re-parsing loses nothing.
	data, err := json.Marshal(metadata)
	require.NoError(t, err)

	var again models.ProductMetadata
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, *metadata, again)

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(metadataSchema), gojsonschema.NewBytesLoader(data))
	require.NoError(t, err)
	assert.True(t, result.Valid())
}
