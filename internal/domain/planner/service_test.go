package planner

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/greennepal/agrihealth/internal/infra/llm/gemini"
	apperrors "github.com/greennepal/agrihealth/pkg/errors"
)

const ricePlan = `[
  {"stage":"Preparation","date":"Jun 1 - Jun 15","advice_en":"Prepare the seedbed","advice_ne":"बीउ ओछ्यान तयार गर्नुहोस्"},
  {"stage":"Sowing","date":"Jun 16 - Jun 30","advice_en":"Transplant seedlings","advice_ne":"बेर्ना सार्नुहोस्"},
  {"stage":"Care","date":"Jul 1 - Oct 15","advice_en":"Maintain water level","advice_ne":"पानीको सतह कायम राख्नुहोस्"},
  {"stage":"Harvest","date":"Oct 16 - Nov 15","advice_en":"Harvest when golden","advice_ne":"सुनौलो भएपछि काट्नुहोस्"}
]`

func newTestService(client GenerateClient) *service {
	return &service{
		cfg:    Config{Model: "gemini-test"},
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestGeneratePlanReturnsFourOrderedStages(t *testing.T) {
	stub := &stubClient{text: "```json\n" + ricePlan + "\n```"}
	svc := newTestService(stub)

	plan, err := svc.GeneratePlan(context.Background(), Request{Crop: "Rice (Dhan)"})
	require.NoError(t, err)
	require.Equal(t, "Rice (Dhan)", plan.Crop)
	require.Len(t, plan.Stages, 4)
	require.Equal(t, []string{"Preparation", "Sowing", "Care", "Harvest"}, []string{
		plan.Stages[0].StageName,
		plan.Stages[1].StageName,
		plan.Stages[2].StageName,
		plan.Stages[3].StageName,
	})

	prompt := stub.lastReq.Contents[0].Parts[0].Text
	require.Contains(t, prompt, "Rice (Dhan)")
	require.Contains(t, prompt, "2025-06-01")
}

func TestGeneratePlanWrongStageCount(t *testing.T) {
	svc := newTestService(&stubClient{text: `[{"stage":"Preparation"}]`})
	_, err := svc.GeneratePlan(context.Background(), Request{Crop: "Maize (Makai)"})
	require.True(t, apperrors.IsCode(err, "parse_error"))
}

func TestGeneratePlanEmptyCrop(t *testing.T) {
	svc := newTestService(&stubClient{})
	_, err := svc.GeneratePlan(context.Background(), Request{Crop: "  "})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestGeneratePlanMalformedJSON(t *testing.T) {
	svc := newTestService(&stubClient{text: "sorry, no plan today"})
	_, err := svc.GeneratePlan(context.Background(), Request{Crop: "Wheat (Gahu)"})
	require.True(t, apperrors.IsCode(err, "parse_error"))
}

type stubClient struct {
	text    string
	err     error
	lastReq gemini.Request
}

func (s *stubClient) GenerateContent(_ context.Context, _ string, req gemini.Request) (gemini.Response, error) {
	s.lastReq = req
	if s.err != nil {
		return gemini.Response{}, s.err
	}
	return gemini.Response{
		Candidates: []gemini.Candidate{{Content: gemini.Content{Parts: []gemini.Part{{Text: s.text}}}}},
	}, nil
}
