package diagnosis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/greennepal/agrihealth/internal/infra/llm/gemini"
	apperrors "github.com/greennepal/agrihealth/pkg/errors"
)

// Service exposes the crop photo assessment capability.
type Service interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// GenerateClient is the slice of the Gemini client the domain needs.
type GenerateClient interface {
	GenerateContent(ctx context.Context, model string, req gemini.Request) (gemini.Response, error)
}

type service struct {
	cfg    Config
	client GenerateClient
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires up the diagnosis domain.
func NewService(cfg Config, client GenerateClient, logger *slog.Logger) Service {
	return &service{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "diagnosis.service"),
		now:    time.Now,
	}
}

const visionPrompt = `Analyze this image of a plant/crop for a local farmer in Nepal.
Identify the plant and diagnose any diseases, pests, or nutrient deficiencies.
Return ONLY a JSON object with this structure:
{
  "status": "Healthy" | "Warning" | "Critical",
  "confidence": number (0-100),
  "issues_en": ["list of detected issues in English"],
  "issues_ne": ["list of detected issues in Nepali (Devanagari)"],
  "recommendations_en": ["list of actionable steps for the farmer in English"],
  "recommendations_ne": ["list of actionable steps for the farmer in Nepali (Devanagari)"]
}
If it's not a plant, return status "Unknown" and explain in issues.`

// BuildPrompt returns the diagnosis instruction template. Exposed so the
// request shape can be diffed without network access.
func BuildPrompt() string {
	return visionPrompt
}

func (s *service) Analyze(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.ImageBase64) == "" {
		return Result{}, apperrors.Wrap("invalid_input", "image payload cannot be empty", nil)
	}
	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	resp, err := s.client.GenerateContent(ctx, s.cfg.Model, gemini.NewVisionRequest(BuildPrompt(), mimeType, req.ImageBase64))
	if err != nil {
		return Result{}, apperrors.Wrap(gemini.ErrorCode(err), "AI vision request failed", err)
	}

	text := resp.Text()
	if text == "" {
		return Result{}, apperrors.Wrap("parse_error", "model returned no analysis", nil)
	}
	if usage := resp.Usage(); !usage.IsZero() {
		s.logger.Debug("diagnosis token usage", "total", usage.TotalTokens)
	}

	result, err := parseResult(text)
	if err != nil {
		return Result{}, apperrors.Wrap("parse_error", "model analysis malformed", err)
	}
	result.Timestamp = s.now().UTC()
	return result, nil
}

func parseResult(raw string) (Result, error) {
	var wire struct {
		Status            string   `json:"status"`
		Confidence        float64  `json:"confidence"`
		IssuesEn          []string `json:"issues_en"`
		IssuesNe          []string `json:"issues_ne"`
		RecommendationsEn []string `json:"recommendations_en"`
		RecommendationsNe []string `json:"recommendations_ne"`
	}
	if err := json.Unmarshal([]byte(gemini.SanitizeJSON(raw)), &wire); err != nil {
		return Result{}, err
	}
	return Result{
		Status:            normalizeStatus(wire.Status),
		Confidence:        clampConfidence(wire.Confidence),
		IssuesEn:          wire.IssuesEn,
		IssuesNe:          wire.IssuesNe,
		RecommendationsEn: wire.RecommendationsEn,
		RecommendationsNe: wire.RecommendationsNe,
	}, nil
}

func normalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "healthy":
		return StatusHealthy
	case "warning":
		return StatusWarning
	case "critical":
		return StatusCritical
	case "error":
		return StatusError
	default:
		return StatusUnknown
	}
}

func clampConfidence(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(v)
	}
}

// Fallback is the canned bilingual record rendered in place of a result when
// the AI call or parsing fails.
func Fallback(now time.Time) Result {
	return Result{
		Status:            StatusError,
		Confidence:        0,
		IssuesEn:          []string{"Could not connect to AI service."},
		IssuesNe:          []string{"AI सेवामा जडान गर्न सकिएन।"},
		RecommendationsEn: []string{"Please check your connection or API key."},
		RecommendationsNe: []string{"कृपया आफ्नो इन्टरनेट जडान वा API कुञ्जी जाँच गर्नुहोस्।"},
		Timestamp:         now.UTC(),
	}
}
