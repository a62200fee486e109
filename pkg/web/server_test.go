package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/fusion"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/motion"
	"github.com/teslashibe/go-gaze/pkg/orientation"
	"github.com/teslashibe/go-gaze/pkg/pointer"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/render"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

type pipeline struct {
	server *Server
	sched  *render.Scheduler
	store  *settings.Store
	ptr    *pointer.Source
	relay  *orientation.RelayPlatform
	orient *orientation.Source
	motion *motion.Source
	cam    *motion.MockCamera
}

func newPipeline() *pipeline {
	p := &pipeline{
		store: settings.NewStore(),
		ptr:   pointer.New(gaze.Viewport{}),
		relay: orientation.NewRelayPlatform(),
		cam:   motion.NewMockCamera(motion.SolidFrame(64, 48, 0)),
	}
	mode := settings.SpringNever
	p.store.Update(settings.Patch{Spring: &mode})

	p.orient = orientation.New(p.relay, nil)
	p.motion = motion.New(motion.DefaultConfig(), p.cam, nil)
	fuser := fusion.NewFuser(nil,
		p.motion,
		fusion.NewOrientationSource(p.orient, p.store.Get().Mapping),
		p.ptr,
	)
	p.sched = render.New(render.DefaultConfig(), fuser, p.store, nil)
	p.server = NewServer(DefaultConfig(), Deps{
		Scheduler:   p.sched,
		Store:       p.store,
		Pointer:     p.ptr,
		Relay:       p.relay,
		Orientation: p.orient,
		Motion:      p.motion,
		Camera:      camera.NewManager(),
		Frames:      hub.New("frames", nil),
	})
	return p
}

func (p *pipeline) close() {
	p.motion.Close()
	p.orient.RevokeAccess()
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	data, _ := io.ReadAll(resp.Body)
	json.Unmarshal(data, &out)
	return resp.StatusCode, out
}

func TestAPIStatus(t *testing.T) {
	p := newPipeline()
	defer p.close()

	status, body := doJSON(t, p.server.App(), "GET", "/api/status", "")
	if status != 200 {
		t.Fatalf("Status = %d, want 200", status)
	}
	sources, ok := body["sources"].([]interface{})
	if !ok || len(sources) != 3 {
		t.Fatalf("Expected 3 sources, got %v", body["sources"])
	}
	last := sources[2].(map[string]interface{})
	if last["name"] != pointer.Name || last["available"] != true {
		t.Errorf("Expected pointer last and available, got %v", last)
	}
}

func TestAPISettings(t *testing.T) {
	p := newPipeline()
	defer p.close()
	app := p.server.App()

	status, body := doJSON(t, app, "PATCH", "/api/settings", `{"eye_count": 12}`)
	if status != 200 {
		t.Fatalf("Status = %d, want 200 (%v)", status, body)
	}
	if p.store.Get().EyeCount != 12 {
		t.Errorf("Expected eye count 12, got %d", p.store.Get().EyeCount)
	}

	status, _ = doJSON(t, app, "PATCH", "/api/settings", `{"eye_count": -1}`)
	if status != 400 {
		t.Errorf("Status = %d, want 400 for invalid settings", status)
	}
	if p.store.Get().EyeCount != 12 {
		t.Error("Rejected update must not change settings")
	}

	status, _ = doJSON(t, app, "POST", "/api/settings/presets/calm", "")
	if status != 200 {
		t.Errorf("Status = %d, want 200 for preset", status)
	}
	if p.store.Get() != settings.CalmSettings() {
		t.Error("Expected calm preset applied")
	}

	status, _ = doJSON(t, app, "POST", "/api/settings/presets/nope", "")
	if status != 404 {
		t.Errorf("Status = %d, want 404 for unknown preset", status)
	}

	status, body = doJSON(t, app, "GET", "/api/settings/presets", "")
	if status != 200 || body["presets"] == nil {
		t.Errorf("Expected preset list, got %d %v", status, body)
	}
}

func TestAPICamera(t *testing.T) {
	p := newPipeline()
	defer p.close()
	app := p.server.App()

	status, body := doJSON(t, app, "GET", "/api/camera", "")
	if status != 200 || body["config"] == nil || body["capabilities"] == nil {
		t.Fatalf("Unexpected camera response %d %v", status, body)
	}

	status, body = doJSON(t, app, "PATCH", "/api/camera", `{"preset": "low"}`)
	if status != 200 {
		t.Fatalf("Status = %d, want 200 (%v)", status, body)
	}
	if body["width"] != float64(camera.LowConfig().Width) {
		t.Errorf("Expected low preset width, got %v", body["width"])
	}

	status, _ = doJSON(t, app, "PATCH", "/api/camera", `{"preset": "nope"}`)
	if status != 400 {
		t.Errorf("Status = %d, want 400 for unknown preset", status)
	}
}

func TestAPIMotionToggle(t *testing.T) {
	p := newPipeline()
	defer p.close()
	app := p.server.App()

	status, body := doJSON(t, app, "POST", "/api/motion", `{"enabled": true}`)
	if status != 200 || body["enabled"] != true {
		t.Fatalf("Expected motion enabled, got %d %v", status, body)
	}
	// Enabling twice is a no-op
	doJSON(t, app, "POST", "/api/motion", `{"enabled": true}`)
	if p.cam.Opens() != 1 {
		t.Errorf("Expected 1 open, got %d", p.cam.Opens())
	}

	status, body = doJSON(t, app, "POST", "/api/motion", `{"enabled": false}`)
	if status != 200 || body["enabled"] != false {
		t.Fatalf("Expected motion disabled, got %d %v", status, body)
	}
	if p.cam.Releases() != 1 {
		t.Errorf("Expected camera released once, got %d", p.cam.Releases())
	}
}

func TestAPIMotionConcurrentEnable(t *testing.T) {
	p := newPipeline()
	defer p.close()
	p.cam.SetOpenDelay(2 * time.Millisecond)
	app := p.server.App()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("POST", "/api/motion", strings.NewReader(`{"enabled": true}`))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Errorf("Request error: %v", err)
				return
			}
			resp.Body.Close()
			if resp.StatusCode != 200 {
				t.Errorf("Status = %d, want 200", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	if !p.motion.IsEnabled() {
		t.Error("Expected motion enabled after two enable requests")
	}
	if p.cam.Opens() != 1 {
		t.Errorf("Expected 1 open, got %d", p.cam.Opens())
	}
}

func TestAPIMotionDenied(t *testing.T) {
	p := newPipeline()
	defer p.close()
	p.cam.SetOpenError(gaze.ErrPermissionDenied)

	status, body := doJSON(t, p.server.App(), "POST", "/api/motion", `{"enabled": true}`)
	if status != 403 {
		t.Errorf("Status = %d, want 403", status)
	}
	if body["permission"] != "denied" {
		t.Errorf("Expected denied permission, got %v", body["permission"])
	}
}

func TestAPIOrientationWithoutClient(t *testing.T) {
	p := newPipeline()
	defer p.close()

	status, body := doJSON(t, p.server.App(), "POST", "/api/orientation/request", "")
	if status != 503 || body["listening"] != false {
		t.Errorf("Expected unsupported orientation, got %d %v", status, body)
	}
}

// liveServer starts the app on addr and returns a dialer helper.
func liveServer(t *testing.T, p *pipeline, addr string) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go p.server.deps.Frames.Run(ctx)
	go p.server.App().Listen(addr)
	time.Sleep(100 * time.Millisecond)
	return func() {
		p.server.Shutdown()
		cancel()
	}
}

func dialInput(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	// First message is the current settings
	msg := readMessage(t, ws)
	if msg.Type != protocol.TypeSettings {
		t.Fatalf("Expected settings greeting, got %s", msg.Type)
	}
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) *protocol.Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	return msg
}

func must(msg *protocol.Message, err error) *protocol.Message {
	if err != nil {
		panic(err)
	}
	return msg
}

func send(t *testing.T, ws *websocket.Conn, msg *protocol.Message) {
	t.Helper()
	data, _ := msg.Bytes()
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Write error: %v", err)
	}
}

// tickUntil ticks the scheduler until cond holds on the last frame.
func tickUntil(s *render.Scheduler, cond func(render.Frame) bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.Tick(1.0 / 60)
		if cond(s.Last()) {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInputPointerDrivesEyes(t *testing.T) {
	p := newPipeline()
	defer p.close()
	stop := liveServer(t, p, ":18280")
	defer stop()

	var recorded []protocol.MessageType
	var mu sync.Mutex
	p.server.OnInput = func(m *protocol.Message) {
		mu.Lock()
		recorded = append(recorded, m.Type)
		mu.Unlock()
	}

	ws := dialInput(t, "ws://localhost:18280/ws/input")
	defer ws.Close()

	send(t, ws, must(protocol.NewViewportMessage(800, 600)))
	ok := tickUntil(p.sched, func(f render.Frame) bool { return f.Viewport.Width == 800 })
	if !ok {
		t.Fatal("Viewport never reached the scheduler")
	}

	send(t, ws, must(protocol.NewPointerMessage(0, 0)))
	ok = tickUntil(p.sched, func(f render.Frame) bool {
		return f.Target.Source == pointer.Name && f.Target.X == 0 && f.Target.Y == 0
	})
	if !ok {
		t.Fatalf("Expected pointer target at origin, got %+v", p.sched.Last().Target)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(recorded) != 2 || recorded[0] != protocol.TypeViewport || recorded[1] != protocol.TypePointer {
		t.Errorf("Expected viewport and pointer recorded, got %v", recorded)
	}
}

func TestInputRejectsBadMessages(t *testing.T) {
	p := newPipeline()
	defer p.close()
	stop := liveServer(t, p, ":18281")
	defer stop()

	ws := dialInput(t, "ws://localhost:18281/ws/input")
	defer ws.Close()

	send(t, ws, must(protocol.NewMessage("bogus", nil)))
	if msg := readMessage(t, ws); msg.Type != protocol.TypeError {
		t.Errorf("Expected error reply, got %s", msg.Type)
	}

	send(t, ws, must(protocol.NewViewportMessage(0, 600)))
	if msg := readMessage(t, ws); msg.Type != protocol.TypeError {
		t.Errorf("Expected error reply for empty viewport, got %s", msg.Type)
	}

	if p.server.Status().Rejected != 2 {
		t.Errorf("Expected 2 rejected, got %d", p.server.Status().Rejected)
	}

	send(t, ws, must(protocol.NewPingMessage("abc")))
	msg := readMessage(t, ws)
	pong, _ := msg.GetPongData()
	if msg.Type != protocol.TypePong || pong.ID != "abc" {
		t.Errorf("Expected pong abc, got %s %+v", msg.Type, pong)
	}
}

func TestInputOrientationConsentFlow(t *testing.T) {
	p := newPipeline()
	defer p.close()
	stop := liveServer(t, p, ":18282")
	defer stop()

	ws := dialInput(t, "ws://localhost:18282/ws/input")
	defer ws.Close()

	send(t, ws, must(protocol.NewViewportMessage(800, 600)))
	send(t, ws, must(protocol.NewCapabilitiesMessage(true, true, false)))

	// Wait for the capabilities to land before asking
	deadline := time.Now().Add(time.Second)
	for !p.relay.Supported() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	type result struct {
		status int
		body   map[string]interface{}
	}
	done := make(chan result, 1)
	go func() {
		req := httptest.NewRequest("POST", "/api/orientation/request", nil)
		resp, err := p.server.App().Test(req, -1)
		if err != nil {
			done <- result{status: -1}
			return
		}
		defer resp.Body.Close()
		body := map[string]interface{}{}
		json.NewDecoder(resp.Body).Decode(&body)
		done <- result{resp.StatusCode, body}
	}()

	msg := readMessage(t, ws)
	if msg.Type != protocol.TypePermissionRequest {
		t.Fatalf("Expected permission request, got %s", msg.Type)
	}
	send(t, ws, must(protocol.NewPermissionMessage(protocol.SensorOrientation, gaze.PermissionGranted)))

	var res result
	select {
	case res = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Orientation request did not complete")
	}
	if res.status != 200 || res.body["listening"] != true {
		t.Fatalf("Expected listening, got %d %v", res.status, res.body)
	}

	send(t, ws, must(protocol.NewOrientationMessage(gaze.OrientationSample{Beta: gaze.Float(0), Gamma: gaze.Float(30)})))
	ok := tickUntil(p.sched, func(f render.Frame) bool {
		return f.Target.Source == orientation.Name && f.Target.X > 400
	})
	if !ok {
		t.Fatalf("Expected orientation target right of center, got %+v", p.sched.Last().Target)
	}

	infos := p.server.Inputs()
	if len(infos) != 1 || !infos[0].Relay {
		t.Errorf("Expected one relay input, got %+v", infos)
	}

	// Losing the relay client stops orientation
	ws.Close()
	deadline = time.Now().Add(2 * time.Second)
	for p.orient.Listening() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.orient.Listening() {
		t.Error("Expected orientation revoked after relay disconnect")
	}
}

func TestInputAutoStartWithoutConsent(t *testing.T) {
	p := newPipeline()
	defer p.close()
	stop := liveServer(t, p, ":18283")
	defer stop()

	ws := dialInput(t, "ws://localhost:18283/ws/input")
	defer ws.Close()

	send(t, ws, must(protocol.NewCapabilitiesMessage(true, false, false)))
	deadline := time.Now().Add(2 * time.Second)
	for !p.orient.Listening() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !p.orient.Listening() {
		t.Error("Expected orientation to start without a consent prompt")
	}
}

func TestInputGeometryLayout(t *testing.T) {
	p := newPipeline()
	defer p.close()
	stop := liveServer(t, p, ":18284")
	defer stop()

	ws := dialInput(t, "ws://localhost:18284/ws/input")
	defer ws.Close()

	geom := protocol.GeometryData{Eyes: []protocol.EyeRect{
		{EyeGeometry: gaze.EyeGeometry{Left: 0, Top: 0, Width: 40, Height: 40}},
		{EyeGeometry: gaze.EyeGeometry{Left: 50, Top: 0, Width: 40, Height: 40}},
	}}
	send(t, ws, must(protocol.NewMessage(protocol.TypeGeometry, geom)))

	ok := tickUntil(p.sched, func(f render.Frame) bool { return len(f.Eyes) == 2 })
	if !ok {
		t.Fatalf("Expected host layout of 2 eyes, got %d", len(p.sched.Last().Eyes))
	}
}

func TestFramesRoute(t *testing.T) {
	p := newPipeline()
	defer p.close()
	stop := liveServer(t, p, ":18285")
	defer stop()

	p.sched.AddSink(p.server.deps.Frames)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18285/ws/frames", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()
	p.server.deps.Frames.WaitForClients(1, time.Second)

	p.sched.SetViewport(gaze.Viewport{Width: 800, Height: 600})
	p.sched.Tick(1.0 / 60)

	msg := readMessage(t, ws)
	if msg.Type != protocol.TypeFrame {
		t.Fatalf("Expected frame, got %s", msg.Type)
	}
	frame, _ := msg.GetFrameData()
	if len(frame.Eyes) != settings.DefaultSettings().EyeCount {
		t.Errorf("Expected %d eyes, got %d", settings.DefaultSettings().EyeCount, len(frame.Eyes))
	}
}

func TestHealthAndMetrics(t *testing.T) {
	p := newPipeline()
	defer p.close()
	app := p.server.App()

	status, body := doJSON(t, app, "GET", "/health", "")
	if status != 200 || body["status"] != "ok" {
		t.Errorf("Unexpected health %d %v", status, body)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "gaze_render_ticks 0") {
		t.Errorf("Expected render tick counter, got %s", data)
	}
}
