package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/infrastructure/resilience"
)

// maxAnalyzerChars truncates input to the provider context limit.
const maxAnalyzerChars = 16000

// Retry policy per analyzer call: one retry with 500ms base backoff. Further
// failures degrade confidence downstream instead of failing the run.
func retryConfig() resilience.Config {
	cfg := resilience.DefaultConfig()
	cfg.RetryMaxAttempts = 2
	cfg.RetryInitialBackoff = 500 * time.Millisecond
	cfg.RetryMaxBackoff = 2 * time.Second
	return cfg
}

// Client talks to an Ollama-compatible generation endpoint and maps its JSON
// output into the document analysis shape.
type Client struct {
	baseURL     string
	model       string
	httpClient  *http.Client
	executor    *resilience.Executor
	limiter     *rate.Limiter
	callTimeout time.Duration
}

func New(baseURL, model string, requestsPerSecond float64, callTimeout time.Duration) *Client {
	if callTimeout <= 0 {
		callTimeout = 20 * time.Second
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		httpClient:  &http.Client{Timeout: callTimeout + 5*time.Second},
		executor:    resilience.NewExecutor(retryConfig()),
		limiter:     rate.NewLimiter(limit, 1),
		callTimeout: callTimeout,
	}
}

// analysisWire is the JSON contract we prompt the model to follow.
type analysisWire struct {
	Summary            string   `json:"summary"`
	Themes             []string `json:"themes"`
	ClientMentions     []string `json:"client_mentions"`
	PrimaryClientName  string   `json:"primary_client_name"`
	DocumentType       string   `json:"document_type"`
	EmotionalTone      string   `json:"emotional_tone"`
	DateStrings        []string `json:"date_strings"`
	ClinicalIndicators []struct {
		Indicator string `json:"indicator"`
		Severity  string `json:"severity"`
		Context   string `json:"context"`
	} `json:"clinical_indicators"`
	Confidence int `json:"confidence"`
}

func (c *Client) Analyze(ctx context.Context, text, filenameHint string) (ports.Analysis, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ports.Analysis{}, fmt.Errorf("analyzer rate wait: %w", err)
	}

	truncated := text
	if len(truncated) > maxAnalyzerChars {
		truncated = truncated[:maxAnalyzerChars]
	}
	prompt := buildAnalysisPrompt(truncated, filenameHint)

	var raw string
	err := c.executor.Execute(ctx, "analyzer.generate", func(attemptCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(attemptCtx, c.callTimeout)
		defer cancel()

		response, err := c.generateJSON(callCtx, prompt)
		if err != nil {
			return err
		}
		raw = response
		return nil
	}, classifyAnalyzerError)
	if err != nil {
		return ports.Analysis{}, domain.WrapError(domain.ErrAnalysisFailed, "analyze document", err)
	}

	var wire analysisWire
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &wire); err != nil {
		return ports.Analysis{}, domain.WrapError(domain.ErrAnalysisFailed, "parse analysis json", err)
	}
	return toAnalysis(wire), nil
}

func toAnalysis(wire analysisWire) ports.Analysis {
	result := domain.AnalysisResult{
		Summary:                wire.Summary,
		Themes:                 wire.Themes,
		ClientMentions:         wire.ClientMentions,
		PrimaryClientNameGuess: wire.PrimaryClientName,
		DocumentType:           normalizeDocumentType(wire.DocumentType),
		EmotionalTone:          wire.EmotionalTone,
		ExtractedDateStrings:   wire.DateStrings,
	}
	if result.Themes == nil {
		result.Themes = []string{}
	}
	if result.ClientMentions == nil {
		result.ClientMentions = []string{}
	}
	if result.ExtractedDateStrings == nil {
		result.ExtractedDateStrings = []string{}
	}
	result.ClinicalIndicators = make([]domain.ClinicalIndicator, 0, len(wire.ClinicalIndicators))
	for _, ind := range wire.ClinicalIndicators {
		result.ClinicalIndicators = append(result.ClinicalIndicators, domain.ClinicalIndicator{
			Indicator: ind.Indicator,
			Severity:  normalizeSeverity(ind.Severity),
			Context:   ind.Context,
		})
	}

	score := wire.Confidence
	if score == 0 && wire.Summary != "" {
		// Older model templates omit confidence; treat a structurally complete
		// response as moderately confident rather than zero.
		score = 60
	}
	return ports.Analysis{Result: result, Score: domain.ClampScore(score)}
}

func normalizeDocumentType(raw string) domain.DocumentType {
	switch domain.DocumentType(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.DocTypeProgressNote, domain.DocTypeAssessment, domain.DocTypeTreatmentPlan, domain.DocTypeTranscript:
		return domain.DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	default:
		return domain.DocTypeOther
	}
}

func normalizeSeverity(raw string) domain.IndicatorSeverity {
	switch domain.IndicatorSeverity(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.SeverityModerate, domain.SeverityHigh, domain.SeverityCritical:
		return domain.IndicatorSeverity(strings.ToLower(strings.TrimSpace(raw)))
	default:
		return domain.SeverityLow
	}
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyzer request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read analyzer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &HTTPStatusError{
			Operation:  "generate",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("decode analyzer envelope: %w", err)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
