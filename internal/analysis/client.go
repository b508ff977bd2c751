package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// upsellSchemaCompiled validates raw LLM JSON against
// upsellAnalysisSchema before it's decoded into UpsellResult. Needed
// mainly for the json_object fallback path, where the model isn't
// constrained to the schema at generation time the way strict
// json_schema mode constrains it.
var upsellSchemaCompiled = compileUpsellSchema()

func compileUpsellSchema() *jsonschema.Schema {
	// Round-trip through JSON so the doc tree uses the same
	// []any/float64 representation jsonschema expects, rather than
	// the Go-native []string/int values in the literal above.
	schemaBytes, err := json.Marshal(upsellAnalysisSchema)
	if err != nil {
		panic(fmt.Sprintf("analysis: marshal upsell schema: %v", err))
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaBytes, &schemaDoc); err != nil {
		panic(fmt.Sprintf("analysis: unmarshal upsell schema: %v", err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("upsell_eval.json", schemaDoc); err != nil {
		panic(fmt.Sprintf("analysis: compile upsell schema: %v", err))
	}
	schema, err := c.Compile("upsell_eval.json")
	if err != nil {
		panic(fmt.Sprintf("analysis: compile upsell schema: %v", err))
	}
	return schema
}

// UpsellResult is the validated, clamped LLM evaluation of a dialogue.
type UpsellResult struct {
	Attempted        string
	QualityScore     int
	Categories       []string
	ClosingQuestion  bool
	CustomerReaction string
	EvidenceQuotes   []string
	Summary          string
	Confidence       float64
}

// LLMCallResult wraps the validated analysis with call metadata
// persisted for observability.
type LLMCallResult struct {
	Analysis     UpsellResult
	Model        string
	LatencySec   float64
	FallbackUsed bool
}

// Client evaluates dialogue transcripts for upsell behavior via the
// OpenAI chat completions API, preferring strict json_schema output
// and falling back to json_object mode for models that reject it.
type Client struct {
	oai   oai.Client
	model string
}

// NewClient constructs an OpenAI-backed analysis client.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("analysis: openai api key must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("analysis: openai model must not be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}

	return &Client{oai: oai.NewClient(opts...), model: model}, nil
}

// AnalyzeDialogue sends the transcript to the configured model and
// returns a validated, clamped UpsellResult. It retries transient
// rate-limit/connection errors with exponential backoff, and falls
// back from strict structured output to json_object mode when the
// model rejects the schema.
func (c *Client) AnalyzeDialogue(ctx context.Context, transcriptText string, durationSec float64, pointID, registerID string) (LLMCallResult, error) {
	userPrompt := buildUserPrompt(transcriptText, durationSec, pointID, registerID)

	start := time.Now()
	raw, fallbackUsed, err := c.callStructured(ctx, userPrompt)
	if err != nil {
		if !looksLikeUnsupportedSchema(err) {
			return LLMCallResult{}, fmt.Errorf("analysis: structured output call: %w", err)
		}
		fallbackUsed = true
		raw, err = c.callJSONMode(ctx, userPrompt)
		if err != nil {
			return LLMCallResult{}, fmt.Errorf("analysis: json-mode fallback call: %w", err)
		}
	}
	latency := time.Since(start).Seconds()

	analysis, err := parseAndClamp(raw)
	if err != nil {
		return LLMCallResult{}, fmt.Errorf("analysis: invalid response structure: %w", err)
	}

	return LLMCallResult{
		Analysis:     analysis,
		Model:        c.model,
		LatencySec:   latency,
		FallbackUsed: fallbackUsed,
	}, nil
}

// looksLikeUnsupportedSchema mirrors the original's substring check on
// the API error message to detect a model/account that rejects strict
// json_schema formatting.
func looksLikeUnsupportedSchema(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "json_schema") ||
		strings.Contains(msg, "structured") ||
		strings.Contains(msg, "format")
}

func (c *Client) callStructured(ctx context.Context, userPrompt string) (string, bool, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(userPrompt),
		},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "upsell_eval",
					Schema: upsellAnalysisSchema,
					Strict: param.NewOpt(true),
				},
			},
		},
	}

	content, err := c.callWithRetry(ctx, params)
	return content, false, err
}

func (c *Client) callJSONMode(ctx context.Context, userPrompt string) (string, error) {
	schemaJSON, err := json.MarshalIndent(upsellAnalysisSchema, "", "  ")
	if err != nil {
		return "", err
	}
	schemaInstruction := "\n\nВерни результат строго в формате JSON по схеме:\n" + string(schemaJSON)

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt + schemaInstruction),
			oai.UserMessage(userPrompt),
		},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: param.NewOpt(0.3),
	}

	return c.callWithRetry(ctx, params)
}

func (c *Client) callWithRetry(ctx context.Context, params oai.ChatCompletionNewParams) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 90 * time.Second

	var content string
	operation := func() error {
		resp, err := c.oai.Chat.Completions.New(ctx, params)
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return backoff.Permanent(fmt.Errorf("empty response from LLM"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// isRetryable treats rate limits (429) and server/connection errors
// as transient; anything else (bad request, auth, schema rejection)
// is permanent and surfaces immediately so the caller can decide on
// a json-mode fallback.
func isRetryable(err error) bool {
	var apiErr *oai.Error
	if ok := asOAIError(err, &apiErr); ok {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}

func asOAIError(err error, target **oai.Error) bool {
	for err != nil {
		if e, ok := err.(*oai.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// parseAndClamp decodes the raw model JSON and applies the same
// normalization the original's Pydantic validators enforced: unknown
// enum values are rejected, evidence_quotes capped at 3 entries of
// 100 runes, summary capped at 200 runes, confidence clamped [0,1].
func parseAndClamp(raw string) (UpsellResult, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return UpsellResult{}, fmt.Errorf("decode: %w", err)
	}
	// Apply the size/range clamps to the document too, so validation rejects bad enums and types but not oversized values.
	if m, ok := doc.(map[string]any); ok {
		if qs, ok := m["evidence_quotes"].([]any); ok {
			for i, q := range qs {
				if s, ok := q.(string); ok && len([]rune(s)) > 100 {
					qs[i] = string([]rune(s)[:100])
				}
			}
			m["evidence_quotes"] = qs[:min(len(qs), 3)]
		}
		if s, ok := m["summary"].(string); ok && len([]rune(s)) > 200 {
			m["summary"] = string([]rune(s)[:200])
		}
		if c, ok := m["confidence"].(float64); ok {
			m["confidence"] = min(max(c, 0), 1)
		}
	}
	if err := upsellSchemaCompiled.Validate(doc); err != nil {
		return UpsellResult{}, fmt.Errorf("schema validation: %w", err)
	}

	var decoded struct {
		Attempted        string   `json:"attempted"`
		QualityScore     int      `json:"quality_score"`
		Categories       []string `json:"categories"`
		ClosingQuestion  bool     `json:"closing_question"`
		CustomerReaction string   `json:"customer_reaction"`
		EvidenceQuotes   []string `json:"evidence_quotes"`
		Summary          string   `json:"summary"`
		Confidence       float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return UpsellResult{}, fmt.Errorf("decode: %w", err)
	}

	quotes := decoded.EvidenceQuotes
	if len(quotes) > 3 {
		quotes = quotes[:3]
	}
	for i, q := range quotes {
		if r := []rune(q); len(r) > 100 {
			quotes[i] = string(r[:100])
		}
	}

	summary := decoded.Summary
	if r := []rune(summary); len(r) > 200 {
		summary = string(r[:200])
	}

	confidence := decoded.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return UpsellResult{
		Attempted:        decoded.Attempted,
		QualityScore:     decoded.QualityScore,
		Categories:       decoded.Categories,
		ClosingQuestion:  decoded.ClosingQuestion,
		CustomerReaction: decoded.CustomerReaction,
		EvidenceQuotes:   quotes,
		Summary:          summary,
		Confidence:       confidence,
	}, nil
}
