package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepnest/mocktest-backend/internal/exam"
	"github.com/prepnest/mocktest-backend/internal/service"
	ws "github.com/prepnest/mocktest-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live session over WebSocket: answers, navigation and
// submit flow in; saved acks, state snapshots and the completion event flow
// out. Clock expiry pushes the completion event without a client request.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:id/stream
func (h *WSHandler) SessionStream(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	ctrl, ok := h.sessionService.Controller(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()
	wsLog.Info().Msg("Candidate connected")

	// Forward the one-shot completion event (expiry auto-submit lands
	// here too). It shares the connection with the read loop below; the
	// Conn write lock keeps the two writers from interleaving frames.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case outcome := <-ctrl.Completed():
			conn.WriteTyped(ws.CompletedResponse{
				Event:      ws.EventCompleted,
				Score:      outcome.Result.Score,
				Percentage: outcome.Result.Percentage,
			})
		case <-done:
		}
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			conn.WriteError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, ctrl, data)
		case ws.ActionClear:
			h.handleClear(conn, ctrl, data)
		case ws.ActionNavigate:
			h.handleNavigate(conn, ctrl, data)
		case ws.ActionSubmit:
			h.handleSubmit(c, conn, wsLog, sessionID)
		case ws.ActionState:
			conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: ctrl.State()})
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong, RemainingSeconds: ctrl.RemainingSeconds()})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(conn *ws.Conn, ctrl *exam.Controller, data []byte) {
	var req ws.AnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed answer payload")
		return
	}
	if err := ctrl.RecordAnswer(req.QuestionNumber, req.Answer); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.SavedResponse{
		Event:          ws.EventSaved,
		QuestionNumber: req.QuestionNumber,
		AnsweredCount:  ctrl.State().AnsweredCount,
	})
}

func (h *WSHandler) handleClear(conn *ws.Conn, ctrl *exam.Controller, data []byte) {
	var req ws.ClearRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed clear payload")
		return
	}
	if err := ctrl.ClearAnswer(req.QuestionNumber); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.SavedResponse{
		Event:          ws.EventSaved,
		QuestionNumber: req.QuestionNumber,
		AnsweredCount:  ctrl.State().AnsweredCount,
	})
}

func (h *WSHandler) handleNavigate(conn *ws.Conn, ctrl *exam.Controller, data []byte) {
	var req ws.NavigateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed navigate payload")
		return
	}
	if err := ctrl.Navigate(req.QuestionNumber); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.SavedResponse{
		Event:          ws.EventSaved,
		QuestionNumber: req.QuestionNumber,
		AnsweredCount:  ctrl.State().AnsweredCount,
	})
}

func (h *WSHandler) handleSubmit(c *gin.Context, conn *ws.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) {
	outcome, err := h.sessionService.Submit(c.Request.Context(), sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("WebSocket submit failed")
		conn.WriteError("submit failed")
		return
	}

	conn.WriteTyped(ws.CompletedResponse{
		Event:      ws.EventCompleted,
		Score:      outcome.Result.Score,
		Percentage: outcome.Result.Percentage,
	})
}
