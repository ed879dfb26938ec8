package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/novelparser/internal/prompts"
	"github.com/jackzampolin/novelparser/internal/types"
)

// ExcerptRunes is how much of the cleaned text a ParseError carries.
const ExcerptRunes = 200

// ParseError reports model output that is not valid JSON of the expected
// shape after cleanup.
type ParseError struct {
	What    string // "analysis" or "summary"
	Err     error
	Excerpt string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s JSON: %v; first %d chars: %s", e.What, e.Err, ExcerptRunes, e.Excerpt)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(what string, cleaned string, err error) *ParseError {
	return &ParseError{What: what, Err: err, Excerpt: excerpt(cleaned, ExcerptRunes)}
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	analysisSchemaOnce sync.Once
	analysisSchema     *jsonschema.Schema
	analysisSchemaErr  error

	summarySchemaOnce sync.Once
	summarySchema     *jsonschema.Schema
	summarySchemaErr  error
)

func compiledAnalysisSchema() (*jsonschema.Schema, error) {
	analysisSchemaOnce.Do(func() {
		analysisSchema, analysisSchemaErr = compile(prompts.AnalysisSchema(types.AllDimensions()))
	})
	return analysisSchema, analysisSchemaErr
}

func compiledSummarySchema() (*jsonschema.Schema, error) {
	summarySchemaOnce.Do(func() {
		summarySchema, summarySchemaErr = compile(prompts.SummarySchema(types.AllDimensions()))
	})
	return summarySchema, summarySchemaErr
}

func compile(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := prompts.SchemaJSON(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return compiled, nil
}

// validate checks cleaned JSON against schema. A document that is not JSON
// at all is reported by the decoder, not here.
func validate(schema *jsonschema.Schema, cleaned string) error {
	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

// ParseAnalysis cleans raw model output and decodes it as a ChapterAnalysis.
// Sub-records that are present must carry their required fields.
func ParseAnalysis(raw string) (*types.ChapterAnalysis, error) {
	cleaned := Clean(raw)

	schema, err := compiledAnalysisSchema()
	if err != nil {
		return nil, err
	}
	if err := validate(schema, cleaned); err != nil {
		return nil, newParseError("analysis", cleaned, err)
	}

	var a types.ChapterAnalysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return nil, newParseError("analysis", cleaned, err)
	}
	return &a, nil
}

// ParseSummary cleans raw model output and decodes it as a NovelSummary.
func ParseSummary(raw string) (*types.NovelSummary, error) {
	cleaned := Clean(raw)

	schema, err := compiledSummarySchema()
	if err != nil {
		return nil, err
	}
	if err := validate(schema, cleaned); err != nil {
		return nil, newParseError("summary", cleaned, err)
	}

	var s types.NovelSummary
	if err := json.Unmarshal([]byte(cleaned), &s); err != nil {
		return nil, newParseError("summary", cleaned, err)
	}
	return &s, nil
}
