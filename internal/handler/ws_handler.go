package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
	ws "github.com/stemsi/exstem-portal/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams the exam state to the exam page and accepts answers
// and the submit action over the same connection.
type WSHandler struct {
	session  *session.Session
	interval time.Duration
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler pushing state every interval.
func NewWSHandler(sess *session.Session, interval time.Duration, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &WSHandler{
		session:  sess,
		interval: interval,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exam/stream?token=...
// Pushes a state event every interval; handles answer, submit and ping.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("student_id", claims.StudentID).Logger()
	wsLog.Info().Msg("Exam page connected")

	// Only the writer goroutine touches the connection for writes.
	out := make(chan any, 8)
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, out, wsLog)
		// Unblocks the reader when the writer gave up first.
		conn.Close()
	}()

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		reply := h.handleAction(ctx, &msg, wsLog)
		select {
		case out <- reply:
		case <-writerDone:
			return
		}
	}

	cancel()
	<-writerDone
}

func (h *WSHandler) handleAction(ctx context.Context, msg *ws.RequestPayload, log zerolog.Logger) any {
	switch msg.Action {
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}

	case ws.ActionAnswer:
		if err := applyAnswer(ctx, h.session, msg.QuestionID, msg.Type, msg.Marks, msg.Choice); err != nil {
			return ws.NewError(err.Error())
		}
		return ws.AckResponse{Event: ws.EventAck, QuestionID: msg.QuestionID}

	case ws.ActionSubmit:
		receipt, err := h.session.Submit(ctx, model.SubmitManual)
		if receipt != nil {
			resp := ws.CompletedResponse{Event: ws.EventCompleted, Receipt: receipt}
			if err != nil {
				resp.Error = err.Error()
			}
			return resp
		}
		log.Warn().Err(err).Msg("Submit over WebSocket failed")
		return ws.NewError(err.Error())

	default:
		log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		return ws.NewError("unknown action: " + string(msg.Action))
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan any, log zerolog.Logger) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	send := func(v any) bool {
		if err := ws.WriteTyped(conn, v); err != nil {
			log.Debug().Err(err).Msg("Write failed")
			return false
		}
		return true
	}

	if !send(ws.StateResponse{Event: ws.EventState, Status: h.session.Status()}) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-out:
			if !send(v) {
				return
			}
		case <-ticker.C:
			if !send(ws.StateResponse{Event: ws.EventState, Status: h.session.Status()}) {
				return
			}
		}
	}
}
