package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/speedwall-planner/backend/internal/holdsvg"
	"github.com/speedwall-planner/backend/internal/holdtype"
	"github.com/speedwall-planner/backend/internal/models"
	"github.com/speedwall-planner/backend/internal/render"
	"github.com/speedwall-planner/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

const composeBody = `{
	"wall": {"lanes": 1, "panelsHeight": 1},
	"routes": [{"segments": [{"source": "warmup"}]}]
}`

func setupTestServer(t *testing.T) (*echo.Echo, *Handler, *testutil.MockStorage) {
	t.Helper()
	store := testutil.NewMockStorage()
	store.AddRoute("warmup", models.ReferenceRoute{
		Color: "#00aa00",
		Holds: []string{"SN1 BIG A1 A2", "SN1 FOOT C3 C4 @s"},
	})
	h := NewHandler(store, holdtype.DefaultRegistry(), holdsvg.NewCache(nil), render.DefaultOptions(), "test")

	e := echo.New()
	SetupMiddleware(e)
	RegisterRoutes(e, NewHandlers(h))
	return e, h, store
}

func doRequest(e *echo.Echo, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func TestHandleHealth(t *testing.T) {
	e, _, _ := setupTestServer(t)
	rec := doRequest(e, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, float64(1), body["routes"])
	assert.Equal(t, float64(3), body["holdTypes"])
}

func TestHandleHoldTypes(t *testing.T) {
	e, _, _ := setupTestServer(t)
	rec := doRequest(e, http.MethodGet, "/api/hold-types", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var specs []holdtype.Spec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &specs))
	assert.Len(t, specs, 3)
}

func TestHandleGetRoute(t *testing.T) {
	e, _, _ := setupTestServer(t)
	rec := doRequest(e, http.MethodGet, "/api/routes/warmup", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Info  models.RouteInfo `json:"info"`
		Holds []PlacedHold     `json:"holds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Info.Holds)
	require.Len(t, body.Holds, 2)
	assert.Equal(t, 1, body.Holds[0].Number)
	assert.Equal(t, "SN1 BIG A1 A2", body.Holds[0].Descriptor)
	assert.Equal(t, "s", body.Holds[1].Hold.Label)
	assert.Equal(t, "SN1 FOOT C3 C4 @s", body.Holds[1].Descriptor)
	assert.Equal(t, 0.0, body.Holds[0].Rotation)

	rec = doRequest(e, http.MethodGet, "/api/routes/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestHandleGetRouteUnknownHoldType(t *testing.T) {
	e, _, store := setupTestServer(t)
	store.AddRoute("crimpy", models.ReferenceRoute{
		Color: "#123456",
		Holds: []string{"SN1 BIG A1 A2", "SN1 CRIMP A1 A2"},
	})

	rec := doRequest(e, http.MethodGet, "/api/routes/crimpy", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "CRIMP", apiErr.Value)
}

func TestHandleImportRoutesYAML(t *testing.T) {
	e, _, store := setupTestServer(t)
	rec := doRequest(e, http.MethodPost, "/api/routes", "application/yaml", `
speed:
  color: "#ff0000"
  holds:
    - DX1 BIG F5 F6
jump:
  color: blue
  holds: []
`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Revision string   `json:"revision"`
		Routes   []string `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test-rev-2", body.Revision)
	assert.Equal(t, []string{"jump", "speed"}, body.Routes)
	assert.Equal(t, 3, store.GetRouteCount())
}

func TestHandleImportRoutesErrors(t *testing.T) {
	e, _, _ := setupTestServer(t)

	rec := doRequest(e, http.MethodPost, "/api/routes", "text/plain", "x")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", decodeError(t, rec).Code)

	rec = doRequest(e, http.MethodPost, "/api/routes", echo.MIMEApplicationJSON, "  ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)

	rec = doRequest(e, http.MethodPost, "/api/routes", echo.MIMEApplicationJSON, `{"a": {"colour": "red"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteRoute(t *testing.T) {
	e, _, store := setupTestServer(t)

	rec := doRequest(e, http.MethodDelete, "/api/routes/warmup", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, store.GetRouteCount())

	rec = doRequest(e, http.MethodDelete, "/api/routes/warmup", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCompose(t *testing.T) {
	e, _, _ := setupTestServer(t)
	rec := doRequest(e, http.MethodPost, "/api/compose", echo.MIMEApplicationJSON, composeBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var comp models.Composition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comp))
	require.Len(t, comp.Holds, 2)
	assert.Equal(t, "warmup", comp.Holds[0].SourceRoute)
	assert.Equal(t, 2, comp.Holds[1].ComposedHoldNumber)
	assert.Equal(t, "#00aa00", comp.Holds[1].Color)
}

func TestHandleComposeMsgpack(t *testing.T) {
	e, _, _ := setupTestServer(t)
	rec := doRequest(e, http.MethodPost, "/api/compose?format=msgpack", echo.MIMEApplicationJSON, composeBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var comp models.Composition
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &comp))
	require.Len(t, comp.Holds, 2)
	assert.Equal(t, 1, comp.Wall.Lanes)
}

func TestHandleComposeFormats(t *testing.T) {
	e, _, _ := setupTestServer(t)

	rec := doRequest(e, http.MethodPost, "/api/compose?format=YAML", echo.MIMEApplicationJSON, composeBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get(echo.HeaderContentType))
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc, "holds")

	rec = doRequest(e, http.MethodPost, "/api/compose?format=json", echo.MIMEApplicationJSON, composeBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var comp models.Composition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comp))
	assert.Len(t, comp.Holds, 2)

	rec = doRequest(e, http.MethodPost, "/api/compose?format=xml", echo.MIMEApplicationJSON, composeBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
}

func TestHandleComposeInlineRoutesShadowLibrary(t *testing.T) {
	e, _, _ := setupTestServer(t)
	body := `{
		"wall": {"lanes": 1, "panelsHeight": 1},
		"routes": [{"segments": [{"source": "warmup"}]}],
		"referenceRoutes": {"warmup": {"color": "blue", "holds": ["SN1 BIG A1 A2"]}}
	}`
	rec := doRequest(e, http.MethodPost, "/api/compose", echo.MIMEApplicationJSON, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var comp models.Composition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comp))
	require.Len(t, comp.Holds, 1)
	assert.Equal(t, "blue", comp.Holds[0].Color)
}

func TestHandleComposeErrors(t *testing.T) {
	e, _, _ := setupTestServer(t)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{
			name:   "unknown route",
			body:   `{"wall": {"lanes": 1, "panelsHeight": 1}, "routes": [{"segments": [{"source": "nope"}]}]}`,
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "bad hold reference",
			body:   `{"wall": {"lanes": 1, "panelsHeight": 1}, "routes": [{"segments": [{"source": "warmup", "fromHold": "x"}]}]}`,
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "invalid json",
			body:   `{"wall": `,
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodPost, "/api/compose", echo.MIMEApplicationJSON, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestHandleRender(t *testing.T) {
	e, _, _ := setupTestServer(t)
	rec := doRequest(e, http.MethodPost, "/api/render", echo.MIMEApplicationJSON, composeBody)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))
	assert.Len(t, rec.Header().Get(HeaderRenderID), 36)
	out := rec.Body.String()
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, `id="`+render.LayerGrid+`"`)
	assert.Equal(t, 2, strings.Count(out, `class="hold" data-type=`))
}

func TestHandleRenderPartialOptions(t *testing.T) {
	e, _, _ := setupTestServer(t)
	body := `{
		"wall": {"lanes": 1, "panelsHeight": 1},
		"routes": [{"segments": [{"source": "warmup"}]}],
		"render": {"showGrid": false}
	}`
	rec := doRequest(e, http.MethodPost, "/api/render", echo.MIMEApplicationJSON, body)
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.NotContains(t, out, `id="`+render.LayerGrid+`"`)
	assert.Contains(t, out, `id="`+render.LayerHolds+`"`)
}

func TestHandleClearTemplateCache(t *testing.T) {
	e, h, _ := setupTestServer(t)
	rec := doRequest(e, http.MethodPost, "/api/render", echo.MIMEApplicationJSON, composeBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, h.templates.Len())

	rec = doRequest(e, http.MethodDelete, "/api/templates/cache", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared": 2}`, rec.Body.String())
	assert.Zero(t, h.templates.Len())
}

func dialPreview(t *testing.T, e *echo.Echo) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/preview"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(10*time.Second)))

	var hello WSMessage
	require.NoError(t, ws.ReadJSON(&hello))
	assert.Equal(t, MsgTypeConnected, hello.Type)
	return ws
}

func TestPreviewPingAndRender(t *testing.T) {
	e, _, _ := setupTestServer(t)
	ws := dialPreview(t, e)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing, ID: "p1"}))
	var pong WSMessage
	require.NoError(t, ws.ReadJSON(&pong))
	assert.Equal(t, MsgTypePong, pong.Type)
	assert.Equal(t, "p1", pong.ID)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeRender, ID: "r1", Payload: json.RawMessage(composeBody)}))
	var res WSRenderResponse
	require.NoError(t, ws.ReadJSON(&res))
	assert.Equal(t, MsgTypeSVG, res.Type)
	assert.Equal(t, "r1", res.ID)
	assert.Equal(t, 2, res.Holds)
	assert.Len(t, res.RenderID, 36)
	assert.Contains(t, res.SVG, "<svg")
}

func TestPreviewErrors(t *testing.T) {
	e, _, _ := setupTestServer(t)
	ws := dialPreview(t, e)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: "shout", ID: "x"}))
	var res WSErrorResponse
	require.NoError(t, ws.ReadJSON(&res))
	assert.Equal(t, MsgTypeError, res.Type)
	assert.Equal(t, "INVALID_TYPE", res.Code)

	bad := `{"wall": {"lanes": 1, "panelsHeight": 1}, "routes": [{"segments": [{"source": "nope"}]}]}`
	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeRender, ID: "r2", Payload: json.RawMessage(bad)}))
	res = WSErrorResponse{}
	require.NoError(t, ws.ReadJSON(&res))
	assert.Equal(t, "r2", res.ID)
	assert.Equal(t, "NOT_FOUND", res.Code)
	assert.Equal(t, "nope", res.Value)
}

func TestPreviewNewerRenderSupersedesInFlight(t *testing.T) {
	_, h, _ := setupTestServer(t)

	started := make(chan struct{})
	var calls int
	wsh := NewWebSocketHandler(h)
	wsh.render = func(ctx context.Context, req *ComposeRequest) ([]byte, *models.Composition, error) {
		// Only the worker goroutine calls render, one request at a time.
		calls++
		if calls == 1 {
			close(started)
			<-ctx.Done()
			return nil, nil, ctx.Err()
		}
		return h.renderSVG(ctx, req)
	}

	e := echo.New()
	SetupMiddleware(e)
	e.GET("/api/ws/preview", wsh.HandleWebSocket)
	ws := dialPreview(t, e)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeRender, ID: "r1", Payload: json.RawMessage(composeBody)}))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first render never started")
	}
	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeRender, ID: "r2", Payload: json.RawMessage(composeBody)}))

	var res WSRenderResponse
	require.NoError(t, ws.ReadJSON(&res))
	assert.Equal(t, MsgTypeSVG, res.Type)
	assert.Equal(t, "r2", res.ID)
	assert.Contains(t, res.SVG, "<svg")

	// Nothing for r1 is queued behind the pong.
	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing, ID: "p1"}))
	var pong WSMessage
	require.NoError(t, ws.ReadJSON(&pong))
	assert.Equal(t, MsgTypePong, pong.Type)
	assert.Equal(t, "p1", pong.ID)
}

func TestPreviewInvalidPayloadSupersedesPending(t *testing.T) {
	_, h, _ := setupTestServer(t)

	started := make(chan struct{})
	wsh := NewWebSocketHandler(h)
	wsh.render = func(ctx context.Context, req *ComposeRequest) ([]byte, *models.Composition, error) {
		close(started)
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}

	e := echo.New()
	SetupMiddleware(e)
	e.GET("/api/ws/preview", wsh.HandleWebSocket)
	ws := dialPreview(t, e)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeRender, ID: "r1", Payload: json.RawMessage(composeBody)}))
	<-started
	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeRender, ID: "r2", Payload: json.RawMessage(`{"bogus": true}`)}))

	var res WSErrorResponse
	require.NoError(t, ws.ReadJSON(&res))
	assert.Equal(t, "r2", res.ID)
	assert.Equal(t, "BAD_REQUEST", res.Code)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing, ID: "p1"}))
	var pong WSMessage
	require.NoError(t, ws.ReadJSON(&pong))
	assert.Equal(t, MsgTypePong, pong.Type)
}
