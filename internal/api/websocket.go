package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/speedwall-planner/backend/internal/models"
	"github.com/speedwall-planner/backend/internal/parser"
)

// WebSocket message types for the live preview protocol
const (
	// Client -> Server messages
	MsgTypeRender = "render"
	MsgTypePing   = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeSVG       = "svg"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope of every preview message.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSRenderResponse carries a finished render.
type WSRenderResponse struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	RenderID string `json:"renderId"`
	Holds    int    `json:"holds"`
	Zones    int    `json:"smearingZones"`
	SVG      string `json:"svg"`
}

// WSErrorResponse reports a failed request.
type WSErrorResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// renderFunc composes and renders one preview request.
type renderFunc func(ctx context.Context, req *ComposeRequest) ([]byte, *models.Composition, error)

// WebSocketHandler serves live previews. Each connection has one render
// worker: a render message cancels the request in flight and replaces any
// pending one, so only the newest request is answered.
type WebSocketHandler struct {
	handler  *Handler
	render   renderFunc
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new preview handler
func NewWebSocketHandler(h *Handler) *WebSocketHandler {
	return &WebSocketHandler{
		handler: h,
		render:  h.renderSVG,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 256 * 1024,
		},
	}
}

type renderJob struct {
	ctx context.Context
	id  string
	req *ComposeRequest
}

type previewConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	// mu guards pending and cancel, and is held while a render reply is
	// written so a newer request cannot slip in between check and send.
	mu      sync.Mutex
	pending *renderJob
	cancel  context.CancelFunc
	wake    chan struct{}
}

func newPreviewConn(ws *websocket.Conn) *previewConn {
	return &previewConn{ws: ws, wake: make(chan struct{}, 1)}
}

func (pc *previewConn) send(v interface{}) {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	if err := pc.ws.WriteJSON(v); err != nil {
		log.Debugf("ws: write failed: %v", err)
	}
}

func (pc *previewConn) sendError(id string, err error) {
	apiErr := FromError(err)
	pc.send(WSErrorResponse{Type: MsgTypeError, ID: id, Code: apiErr.Code, Message: apiErr.Message, Value: apiErr.Value})
}

// supersede cancels the request in flight and drops the pending one. When job
// is non-nil it becomes the pending request.
func (pc *previewConn) supersede(parent context.Context, job *renderJob) {
	pc.mu.Lock()
	if pc.cancel != nil {
		pc.cancel()
		pc.cancel = nil
	}
	pc.pending = nil
	if job != nil {
		job.ctx, pc.cancel = context.WithCancel(parent)
		pc.pending = job
	}
	pc.mu.Unlock()

	if job != nil {
		select {
		case pc.wake <- struct{}{}:
		default:
		}
	}
}

func (pc *previewConn) take() *renderJob {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	job := pc.pending
	pc.pending = nil
	return job
}

// work renders pending requests one at a time until ctx is done.
func (pc *previewConn) work(ctx context.Context, render renderFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-pc.wake:
		}
		job := pc.take()
		if job == nil {
			continue
		}

		svg, comp, err := render(job.ctx, job.req)

		pc.mu.Lock()
		if job.ctx.Err() != nil {
			pc.mu.Unlock()
			log.Debugf("ws: dropping superseded render %s", job.id)
			continue
		}
		if err != nil {
			pc.sendError(job.id, err)
		} else {
			pc.send(WSRenderResponse{
				Type:     MsgTypeSVG,
				ID:       job.id,
				RenderID: uuid.New().String(),
				Holds:    len(comp.Holds),
				Zones:    len(comp.Zones),
				SVG:      string(svg),
			})
		}
		pc.mu.Unlock()
	}
}

// HandleWebSocket upgrades the connection and runs the preview protocol
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	pc := newPreviewConn(ws)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pc.work(ctx, wsh.render)
	}()

	log.Debugf("ws: preview client connected from %s", c.RealIP())
	pc.send(WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("ws: connection error: %v", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			pc.send(WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		case MsgTypeRender:
			wsh.handleRender(ctx, pc, msg)
		default:
			pc.send(WSErrorResponse{Type: MsgTypeError, ID: msg.ID, Code: "INVALID_TYPE", Message: "Unknown message type: " + msg.Type})
		}
	}

	pc.supersede(ctx, nil)
	cancel()
	<-done
	log.Debugf("ws: preview client disconnected")
	return nil
}

// handleRender decodes a render message and hands it to the worker. A message
// that fails to decode still supersedes earlier requests.
func (wsh *WebSocketHandler) handleRender(ctx context.Context, pc *previewConn, msg WSMessage) {
	codec, err := parser.GetGlobalRegistry().GetCodecByName("json")
	if err != nil {
		pc.supersede(ctx, nil)
		pc.sendError(msg.ID, err)
		return
	}
	req := wsh.handler.newComposeRequest()
	if err := codec.Decode(msg.Payload, req); err != nil {
		pc.supersede(ctx, nil)
		pc.sendError(msg.ID, NewBadRequestError("invalid render payload", err))
		return
	}
	pc.supersede(ctx, &renderJob{id: msg.ID, req: req})
}
