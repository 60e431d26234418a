package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepnest/mocktest-backend/internal/exam"
	"github.com/prepnest/mocktest-backend/internal/model"
	"github.com/prepnest/mocktest-backend/internal/response"
	"github.com/prepnest/mocktest-backend/internal/service"
	"github.com/prepnest/mocktest-backend/internal/validator"
)

type SessionHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
}

func NewSessionHandler(sessionService *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// Create godoc
// POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	started, err := h.sessionService.Start(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrNoQuestions) {
			response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
			return
		}
		var ve *exam.ValidationError
		if errors.As(err, &ve) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		h.log.Error().Err(err).Str("subject", req.Subject).Msg("Session start failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrSessionInitFailed)
		return
	}

	response.Success(c, http.StatusCreated, started)
}

// GetState godoc
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetState(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// RecordAnswer godoc
// PUT /api/v1/sessions/:id/answers/:number
func (h *SessionHandler) RecordAnswer(c *gin.Context) {
	ctrl, num, ok := h.controllerAndNumber(c)
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.RecordAnswer(num, req.Answer); err != nil {
		h.failFromRuntime(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answered_count": ctrl.State().AnsweredCount})
}

// ClearAnswer godoc
// DELETE /api/v1/sessions/:id/answers/:number
func (h *SessionHandler) ClearAnswer(c *gin.Context) {
	ctrl, num, ok := h.controllerAndNumber(c)
	if !ok {
		return
	}

	if err := ctrl.ClearAnswer(num); err != nil {
		h.failFromRuntime(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answered_count": ctrl.State().AnsweredCount})
}

// Navigate godoc
// POST /api/v1/sessions/:id/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.Navigate(req.QuestionNumber); err != nil {
		h.failFromRuntime(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"current_question": req.QuestionNumber})
}

// Submit godoc
// POST /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	outcome, err := h.sessionService.Submit(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		var pe *exam.PersistenceError
		if errors.As(err, &pe) {
			h.log.Error().Err(err).Str("session_id", id.String()).Msg("Submit persistence failure")
			response.Fail(c, http.StatusServiceUnavailable, response.ErrSubmitFailed)
			return
		}
		h.failFromRuntime(c, err)
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

// Abandon godoc
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Abandon(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	if err := h.sessionService.Abandon(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "session abandoned"})
}

// GetResult godoc
// GET /api/v1/sessions/:id/result
func (h *SessionHandler) GetResult(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	outcome, err := h.sessionService.Result(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		case errors.Is(err, service.ErrResultNotReady):
			response.Fail(c, http.StatusConflict, response.ErrResultNotReady)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

func (h *SessionHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func (h *SessionHandler) controller(c *gin.Context) (*exam.Controller, bool) {
	id, ok := h.sessionID(c)
	if !ok {
		return nil, false
	}
	ctrl, ok := h.sessionService.Controller(id)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil, false
	}
	return ctrl, true
}

func (h *SessionHandler) controllerAndNumber(c *gin.Context) (*exam.Controller, int, bool) {
	ctrl, ok := h.controller(c)
	if !ok {
		return nil, 0, false
	}
	num, err := strconv.Atoi(c.Param("number"))
	if err != nil || num < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionOutOfRange)
		return nil, 0, false
	}
	return ctrl, num, true
}

// failFromRuntime maps session runtime errors onto API error codes.
func (h *SessionHandler) failFromRuntime(c *gin.Context, err error) {
	switch {
	case errors.Is(err, exam.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, exam.ErrSessionClosed):
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
	case errors.Is(err, exam.ErrQuestionOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionOutOfRange)
	default:
		var ve *exam.ValidationError
		if errors.As(err, &ve) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
