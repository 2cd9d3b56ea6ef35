package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/greennepal/agrihealth/internal/infra/llm/gemini"
	apperrors "github.com/greennepal/agrihealth/pkg/errors"
)

// Service generates farming calendars.
type Service interface {
	GeneratePlan(ctx context.Context, req Request) (Plan, error)
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

// NewService wires up the planner domain.
func NewService(cfg Config, client GenerateClient, logger *slog.Logger) Service {
	return &service{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "planner.service"),
		now:    time.Now,
	}
}

const stageCount = 4

// BuildPrompt embeds the crop and the current date into the calendar
// instruction. Pure, so the request shape is testable without network access.
func BuildPrompt(crop string, today time.Time) string {
	return fmt.Sprintf(`Create a farming calendar for '%s' in Nepal starting from today (%s).
Generate 4 key stages (Preparation, Sowing, Care, Harvest).
Return ONLY JSON:
[
  {
    "stage": "Stage Name",
    "date": "Approx Date Range",
    "advice_en": "English advice",
    "advice_ne": "Nepali advice (Devanagari)"
  }
]`, crop, today.Format("2006-01-02"))
}

func (s *service) GeneratePlan(ctx context.Context, req Request) (Plan, error) {
	crop := strings.TrimSpace(req.Crop)
	if crop == "" {
		return Plan{}, apperrors.Wrap("invalid_input", "crop cannot be empty", nil)
	}

	resp, err := s.client.GenerateContent(ctx, s.cfg.Model, gemini.NewTextRequest(BuildPrompt(crop, s.now())))
	if err != nil {
		return Plan{}, apperrors.Wrap(gemini.ErrorCode(err), "AI planning request failed", err)
	}

	text := resp.Text()
	if text == "" {
		return Plan{}, apperrors.Wrap("parse_error", "model returned no plan", nil)
	}

	stages, err := parseStages(text)
	if err != nil {
		return Plan{}, apperrors.Wrap("parse_error", "model plan malformed", err)
	}
	s.logger.Info("plan generated", "crop", crop, "stages", len(stages))
	return Plan{Crop: crop, Stages: stages}, nil
}

func parseStages(raw string) ([]Stage, error) {
	var wire []struct {
		Stage    string `json:"stage"`
		Date     string `json:"date"`
		AdviceEn string `json:"advice_en"`
		AdviceNe string `json:"advice_ne"`
	}
	if err := json.Unmarshal([]byte(gemini.SanitizeJSON(raw)), &wire); err != nil {
		return nil, err
	}
	if len(wire) != stageCount {
		return nil, fmt.Errorf("expected %d stages, got %d", stageCount, len(wire))
	}
	stages := make([]Stage, 0, stageCount)
	for _, w := range wire {
		stages = append(stages, Stage{
			StageName:      strings.TrimSpace(w.Stage),
			DateRangeLabel: strings.TrimSpace(w.Date),
			AdviceEn:       strings.TrimSpace(w.AdviceEn),
			AdviceNe:       strings.TrimSpace(w.AdviceNe),
		})
	}
	return stages, nil
}
