package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/greennepal/agrihealth/internal/domain/assistant"
	"github.com/greennepal/agrihealth/internal/domain/auth"
	"github.com/greennepal/agrihealth/internal/domain/dashboard"
	"github.com/greennepal/agrihealth/internal/domain/diagnosis"
	"github.com/greennepal/agrihealth/internal/domain/history"
	"github.com/greennepal/agrihealth/internal/domain/planner"
	"github.com/greennepal/agrihealth/internal/domain/tasks"
	"github.com/greennepal/agrihealth/internal/infra/config"
	"github.com/greennepal/agrihealth/internal/infra/farmstore"
	"github.com/greennepal/agrihealth/internal/infra/imagestore"
	"github.com/greennepal/agrihealth/internal/infra/llm/gemini"
	"github.com/greennepal/agrihealth/internal/infra/userrepo"
	"github.com/greennepal/agrihealth/internal/infra/weathercache"
)

func TestRouter_DiagnoseFallbackOnUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gemini.err = errors.New("dial tcp: connection refused")

	rec := env.post("/api/v1/diagnose", `{"imageBase64":"aGVsbG8=","mimeType":"image/jpeg"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got diagnosis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, diagnosis.StatusError, got.Status)
	require.Equal(t, 0, got.Confidence)
	require.NotEmpty(t, got.IssuesNe)
}

func TestRouter_DiagnoseQuotaSurfaces(t *testing.T) {
	env := newTestEnv(t)
	env.gemini.err = &gemini.APIError{StatusCode: http.StatusTooManyRequests, Body: "quota exhausted"}

	rec := env.post("/api/v1/diagnose", `{"imageBase64":"aGVsbG8=","mimeType":"image/jpeg"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "quota_exceeded", errBody["error"]["code"])
}

func TestRouter_DiagnoseSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.gemini.text = `{"status":"Healthy","confidence":95,"issues_en":[],"issues_ne":[],"recommendations_en":["Keep monitoring"],"recommendations_ne":["निगरानी जारी राख्नुहोस्"]}`

	rec := env.post("/api/v1/diagnose", `{"imageBase64":"aGVsbG8=","mimeType":"image/jpeg"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got diagnosis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, diagnosis.StatusHealthy, got.Status)
	require.Equal(t, 95, got.Confidence)
}

func TestRouter_ChatAndPlan(t *testing.T) {
	env := newTestEnv(t)
	env.gemini.text = "Water in the morning."

	rec := env.post("/api/v1/chat", `{"message":"When should I water?"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var chat assistant.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	require.Equal(t, "Water in the morning.", chat.Reply)

	// the model answers with the prompt's wire contract, a bare JSON array
	env.gemini.text = `[
		{"stage":"Preparation","date":"Week 1-2","advice_en":"Till the soil","advice_ne":"माटो खन्नुहोस्"},
		{"stage":"Sowing","date":"Week 3","advice_en":"Sow seeds","advice_ne":"बीउ रोप्नुहोस्"},
		{"stage":"Care","date":"Week 4-10","advice_en":"Weed and water","advice_ne":"गोडमेल गर्नुहोस्"},
		{"stage":"Harvest","date":"Week 11-12","advice_en":"Harvest dry","advice_ne":"कटानी गर्नुहोस्"}]`

	rec = env.post("/api/v1/plans", `{"crop":"rice"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var plan planner.Plan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.Len(t, plan.Stages, 4)
	require.Equal(t, "Preparation", plan.Stages[0].StageName)
}

func TestRouter_TTSNoAudioReturns204(t *testing.T) {
	env := newTestEnv(t)
	env.gemini.text = "" // no inline audio part either

	rec := env.post("/api/v1/tts", `{"text":"hello"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_DashboardEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/api/v1/weather", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap dashboard.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, 36, snap.WindKph, "10 m/s converts to 36 km/h")

	rec = env.get("/api/v1/market", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var market map[string][]dashboard.MarketEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &market))
	require.NotEmpty(t, market["prices"])

	rec = env.get("/api/v1/fields", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_GuestTaskFlowIsSessionScoped(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post("/api/v1/tasks", `{"text":"Water Tomato Field A","priority":"high"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created tasks.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = env.get("/api/v1/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing map[string][]tasks.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing["tasks"], 1)

	// a different session sees an empty board
	rec = env.get("/api/v1/tasks", "other-session")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Empty(t, listing["tasks"])

	rec = env.patch("/api/v1/tasks/"+created.ID+"/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled tasks.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	require.True(t, toggled.Completed)

	rec = env.delete("/api/v1/tasks/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_TaskStreamSnapshotAndWindow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post("/api/v1/tasks", `{"text":"Spray neem oil","priority":"medium"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	// the stream sends the current board immediately, then ends within the
	// configured window instead of waiting for the write deadline to cut it
	start := time.Now()
	rec = env.get("/api/v1/tasks/stream", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "Spray neem oil")
	require.Less(t, time.Since(start), testWriteTimeout)
}

func TestStreamWindowStaysBelowWriteDeadline(t *testing.T) {
	require.Zero(t, streamWindow(0))
	require.Equal(t, time.Second, streamWindow(2*time.Second))
	require.Equal(t, 58*time.Second, streamWindow(time.Minute))
}

func TestRouter_ToggleMissingTask(t *testing.T) {
	env := newTestEnv(t)
	rec := env.patch("/api/v1/tasks/nope/toggle", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "not_found", errBody["error"]["code"])
}

func TestRouter_HistoryFlow(t *testing.T) {
	env := newTestEnv(t)

	body := `{"result":{"status":"Warning","confidence":80,"issuesEn":["Blight"],"issuesNe":["ढुसी"],"recommendationsEn":[],"recommendationsNe":[]}}`
	rec := env.post("/api/v1/history", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var record history.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	require.NotEmpty(t, record.ID)

	rec = env.get("/api/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing map[string][]history.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing["records"], 1)

	rec = env.delete("/api/v1/history/"+record.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_AuthRegisterLoginProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post("/api/v1/auth/register", `{"email":"farmer@example.com","password":"pass1234","name":"Ram"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.post("/api/v1/auth/login", `{"email":"farmer@example.com","password":"pass1234"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login auth.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	recorder := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
	var view auth.UserView
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &view))
	require.Equal(t, "farmer@example.com", view.Email)

	// duplicate registration conflicts
	rec = env.post("/api/v1/auth/register", `{"email":"farmer@example.com","password":"pass1234","name":"Ram"}`, "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_ProfileWithoutTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/api/v1/auth/profile", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// testWriteTimeout keeps the bounded task-stream test fast.
const testWriteTimeout = 300 * time.Millisecond

// testEnv assembles a full router backed by in-memory infrastructure and a
// scripted model client.
type testEnv struct {
	server *http.Server
	gemini *scriptedGenerateClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := newTestLogger()
	client := &scriptedGenerateClient{}

	authSvc := auth.NewService(auth.Config{
		Secret:          "test-secret",
		TokenTTL:        time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}, userrepo.NewMemoryRepository(), logger)

	diagnosisSvc := diagnosis.NewService(diagnosis.Config{Model: "test-vision"}, client, logger)
	plannerSvc := planner.NewService(planner.Config{Model: "test-model"}, client, logger)
	assistantSvc := assistant.NewService(assistant.Config{
		Model:    "test-model",
		TTSModel: "test-tts",
		Voice:    "Aoede",
		Persona:  "You are Agri-Bot.",
	}, client, logger)

	dashboardSvc := dashboard.NewService(dashboard.Config{
		Latitude:  27.7172,
		Longitude: 85.3240,
		UVIndex:   6,
		CacheTTL:  time.Minute,
	}, stubWeather{}, weathercache.NewMemoryStore(time.Minute), logger)

	taskStore := farmstore.NewMemoryTaskStore()
	tasksSvc := tasks.NewService(farmstore.NewMemoryTaskStore(), taskStore, logger)

	images := imagestore.NewMemoryStorage()
	historySvc := history.NewService(farmstore.NewMemoryScanStore(), images, logger)

	handler := NewHandler(authSvc, diagnosisSvc, plannerSvc, assistantSvc, dashboardSvc, tasksSvc, historySvc, images, logger)
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: testWriteTimeout,
		},
	}
	return &testEnv{server: NewRouter(cfg, handler, authSvc, logger), gemini: client}
}

func (e *testEnv) do(method, path, body, session string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) post(path, body, session string) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, body, session)
}

func (e *testEnv) get(path, session string) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, path, "", session)
}

func (e *testEnv) patch(path, session string) *httptest.ResponseRecorder {
	return e.do(http.MethodPatch, path, "", session)
}

func (e *testEnv) delete(path, session string) *httptest.ResponseRecorder {
	return e.do(http.MethodDelete, path, "", session)
}

// scriptedGenerateClient satisfies every domain's GenerateClient interface.
type scriptedGenerateClient struct {
	text string
	err  error
}

func (s *scriptedGenerateClient) GenerateContent(_ context.Context, _ string, _ gemini.Request) (gemini.Response, error) {
	if s.err != nil {
		return gemini.Response{}, s.err
	}
	return gemini.Response{
		Candidates: []gemini.Candidate{{
			Content: gemini.Content{Parts: []gemini.Part{{Text: s.text}}},
		}},
	}, nil
}

type stubWeather struct{}

func (stubWeather) Fetch(_ context.Context, _, _ float64) (dashboard.Observation, error) {
	return dashboard.Observation{TempC: 28, HumidityPct: 65, WindMS: 10}, nil
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
