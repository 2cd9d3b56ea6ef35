package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greennepal/agrihealth/internal/domain/assistant"
	"github.com/greennepal/agrihealth/internal/domain/auth"
	"github.com/greennepal/agrihealth/internal/domain/dashboard"
	"github.com/greennepal/agrihealth/internal/domain/diagnosis"
	"github.com/greennepal/agrihealth/internal/domain/history"
	"github.com/greennepal/agrihealth/internal/domain/planner"
	"github.com/greennepal/agrihealth/internal/domain/tasks"
	"github.com/greennepal/agrihealth/internal/infra/imagestore"
	apperrors "github.com/greennepal/agrihealth/pkg/errors"
)

// sessionHeader carries the anonymous owner key for guests. Browsers without
// an account share the "local" scope, mirroring device-local storage.
const (
	sessionHeader   = "X-Session-Id"
	defaultOwnerKey = "local"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	authSvc      auth.Service
	diagnosisSvc diagnosis.Service
	plannerSvc   planner.Service
	assistantSvc assistant.Service
	dashboardSvc dashboard.Service
	tasksSvc     tasks.Service
	historySvc   history.Service
	images       imagestore.Storage
	logger       *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(
	authSvc auth.Service,
	diagnosisSvc diagnosis.Service,
	plannerSvc planner.Service,
	assistantSvc assistant.Service,
	dashboardSvc dashboard.Service,
	tasksSvc tasks.Service,
	historySvc history.Service,
	images imagestore.Storage,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		authSvc:      authSvc,
		diagnosisSvc: diagnosisSvc,
		plannerSvc:   plannerSvc,
		assistantSvc: assistantSvc,
		dashboardSvc: dashboardSvc,
		tasksSvc:     tasksSvc,
		historySvc:   historySvc,
		images:       images,
		logger:       logger.With("component", "http.handler"),
	}
}

// ownerFor resolves the data scope for the request: the authenticated user
// when claims are present, otherwise the session header or the shared
// anonymous scope.
func ownerFor(c *gin.Context) tasks.Owner {
	if claims, ok := getClaims(c); ok {
		return tasks.Owner{Key: "user-" + strconv.FormatInt(claims.UserID, 10), Authenticated: true}
	}
	if session := strings.TrimSpace(c.GetHeader(sessionHeader)); session != "" {
		return tasks.Owner{Key: session}
	}
	return tasks.Owner{Key: defaultOwnerKey}
}

// Register creates a new account.
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	view, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Login exchanges credentials for a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Profile returns the authenticated user's account.
func (h *Handler) Profile(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
		return
	}
	view, err := h.authSvc.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, view)
}

// Logout ends the session server-side.
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing credentials", nil))
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), claims.UserID); err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func authHTTPError(err error) *HTTPError {
	status := http.StatusInternalServerError
	code := "auth_failed"
	switch {
	case apperrors.IsCode(err, "invalid_input"):
		status, code = http.StatusBadRequest, "invalid_request"
	case apperrors.IsCode(err, "email_exists"):
		status, code = http.StatusConflict, "email_exists"
	case apperrors.IsCode(err, "invalid_credentials"):
		status, code = http.StatusUnauthorized, "invalid_credentials"
	case apperrors.IsCode(err, "invalid_token"):
		status, code = http.StatusForbidden, "invalid_token"
	case apperrors.IsCode(err, "user_not_found"):
		status, code = http.StatusNotFound, "user_not_found"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

// Diagnose runs the crop photo through the vision model. When the model
// answers with something unparseable the farmer still gets a usable record
// marked as a connectivity failure rather than a blank error page.
func (h *Handler) Diagnose(c *gin.Context) {
	var req diagnosis.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	result, err := h.diagnosisSvc.Analyze(c.Request.Context(), req)
	if err != nil {
		switch {
		case apperrors.IsCode(err, "invalid_input"):
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		case apperrors.IsCode(err, "quota_exceeded"):
			abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "quota_exceeded", errMessage(err), err))
		case apperrors.IsCode(err, "invalid_api_key"):
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "invalid_api_key", errMessage(err), err))
		default:
			h.logger.Warn("diagnosis degraded to fallback record", "error", err)
			c.JSON(http.StatusOK, diagnosis.Fallback(time.Now().UTC()))
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GeneratePlan produces the four stage farming calendar for a crop.
func (h *Handler) GeneratePlan(c *gin.Context) {
	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	plan, err := h.plannerSvc.GeneratePlan(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, aiHTTPError(err, "plan_failed"))
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Chat answers a free-form farming question in the language it was asked.
func (h *Handler) Chat(c *gin.Context) {
	var req assistant.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.assistantSvc.Chat(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, aiHTTPError(err, "chat_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Speak synthesizes the given text and returns a WAV file. A silent skip from
// the model yields 204 so the client simply does not play anything.
func (h *Handler) Speak(c *gin.Context) {
	var req assistant.SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	audio, err := h.assistantSvc.Speak(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, aiHTTPError(err, "tts_failed"))
		return
	}
	if len(audio) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "audio/wav", audio)
}

func aiHTTPError(err error, fallbackCode string) *HTTPError {
	status := http.StatusBadGateway
	code := fallbackCode
	switch {
	case apperrors.IsCode(err, "invalid_input"):
		status, code = http.StatusBadRequest, "invalid_request"
	case apperrors.IsCode(err, "quota_exceeded"):
		status, code = http.StatusTooManyRequests, "quota_exceeded"
	case apperrors.IsCode(err, "invalid_api_key"):
		status, code = http.StatusUnauthorized, "invalid_api_key"
	case apperrors.IsCode(err, "parse_error"):
		status, code = http.StatusBadGateway, "parse_error"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

// Weather returns the cached or freshly fetched conditions snapshot.
func (h *Handler) Weather(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboardSvc.Weather(c.Request.Context()))
}

// Market returns indicative crop prices.
func (h *Handler) Market(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prices": h.dashboardSvc.Market(c.Request.Context())})
}

// Fields returns the field status board.
func (h *Handler) Fields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": h.dashboardSvc.Fields(c.Request.Context())})
}

// ListTasks returns the owner's task collection.
func (h *Handler) ListTasks(c *gin.Context) {
	list, err := h.tasksSvc.List(c.Request.Context(), ownerFor(c))
	if err != nil {
		abortWithError(c, storeHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

// AddTask appends a task to the owner's collection.
func (h *Handler) AddTask(c *gin.Context) {
	var req tasks.AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	task, err := h.tasksSvc.Add(c.Request.Context(), ownerFor(c), req)
	if err != nil {
		abortWithError(c, storeHTTPError(err))
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ToggleTask flips completion on a task.
func (h *Handler) ToggleTask(c *gin.Context) {
	task, err := h.tasksSvc.Toggle(c.Request.Context(), ownerFor(c), c.Param("id"))
	if err != nil {
		abortWithError(c, storeHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task.
func (h *Handler) DeleteTask(c *gin.Context) {
	if err := h.tasksSvc.Delete(c.Request.Context(), ownerFor(c), c.Param("id")); err != nil {
		abortWithError(c, storeHTTPError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// StreamTasks pushes the owner's full task collection over SSE whenever it
// changes. A positive window ends the stream before the server's write
// deadline can sever the connection mid-event; EventSource clients reconnect
// and replay from the initial snapshot.
func (h *Handler) StreamTasks(window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := ownerFor(c)
		stream, stop, err := h.tasksSvc.Subscribe(c.Request.Context(), owner)
		if err != nil {
			abortWithError(c, storeHTTPError(err))
			return
		}
		defer stop()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
			return
		}

		var closing <-chan time.Time
		if window > 0 {
			timer := time.NewTimer(window)
			defer timer.Stop()
			closing = timer.C
		}

		// initial snapshot so a reconnecting client renders without waiting
		// for the next mutation
		if snapshot, err := h.tasksSvc.List(c.Request.Context(), owner); err == nil {
			h.writeTaskEvent(c, flusher, snapshot)
		}

		for {
			select {
			case snapshot, open := <-stream:
				if !open {
					return
				}
				h.writeTaskEvent(c, flusher, snapshot)
			case <-closing:
				return
			case <-c.Request.Context().Done():
				return
			}
		}
	}
}

func (h *Handler) writeTaskEvent(c *gin.Context, flusher http.Flusher, snapshot []tasks.Task) {
	payload, err := json.Marshal(gin.H{"tasks": snapshot})
	if err != nil {
		h.logger.Error("marshal task snapshot failed", "error", err)
		return
	}
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	flusher.Flush()
}

// ListHistory returns the owner's saved scans, newest first for remote
// storage.
func (h *Handler) ListHistory(c *gin.Context) {
	records, err := h.historySvc.List(c.Request.Context(), ownerFor(c).Key)
	if err != nil {
		abortWithError(c, storeHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// SaveHistory persists a diagnosis the farmer chose to keep.
func (h *Handler) SaveHistory(c *gin.Context) {
	var req history.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	record, err := h.historySvc.Save(c.Request.Context(), ownerFor(c).Key, req)
	if err != nil {
		abortWithError(c, storeHTTPError(err))
		return
	}
	c.JSON(http.StatusCreated, record)
}

// DeleteHistory removes a saved scan.
func (h *Handler) DeleteHistory(c *gin.Context) {
	if err := h.historySvc.Delete(c.Request.Context(), ownerFor(c).Key, c.Param("id")); err != nil {
		abortWithError(c, storeHTTPError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ServeImage streams a stored crop photo back to the client.
func (h *Handler) ServeImage(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "image key missing", nil))
		return
	}
	reader, mimeType, err := h.images.Get(c.Request.Context(), key)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "not_found", "image not found", err))
		return
	}
	defer reader.Close()
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, mimeType, reader, nil)
}

func storeHTTPError(err error) *HTTPError {
	status := http.StatusInternalServerError
	code := "store_error"
	switch {
	case apperrors.IsCode(err, "invalid_input"):
		status, code = http.StatusBadRequest, "invalid_request"
	case apperrors.IsCode(err, "not_found"):
		status, code = http.StatusNotFound, "not_found"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
