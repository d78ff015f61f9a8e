package admin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/hook"
	"github.com/tilegate/gethook/host"
	"github.com/tilegate/gethook/player"
	"github.com/tilegate/gethook/world"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newTestServer(t *testing.T) (*Server, *hook.Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	players := player.NewRegistry()
	players.Add(&player.Player{Index: 4, Name: "bob", IP: "10.0.0.2"})
	players.Add(&player.Player{Index: 1, Name: "alice", IP: "10.0.0.1", AccountName: "alice"})

	handler, err := hook.New("admin-test", &host.NetGetData{}, world.NewTileMap(10, 10), players, hook.Config{TraceEvents: []string{"ChatText"}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(handler.Dispose)

	return New("127.0.0.1:0", handler, players), handler
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestStatus(t *testing.T) {
	s, handler := newTestServer(t)
	handler.Subscribe(event.ChatText, func(event.Event) error { return nil })
	s.AddStatus("relay", func() any { return map[string]int{"published": 3} })

	w := do(s, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status code %d", w.Code)
	}

	var body struct {
		Online      int            `json:"online"`
		Hook        hook.Stats     `json:"hook"`
		Subscribers map[string]int `json:"subscribers"`
		Relay       map[string]int `json:"relay"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Online != 2 || body.Hook.Disposed || body.Subscribers["ChatText"] != 1 || body.Relay["published"] != 3 {
		t.Fatalf("status = %s", w.Body.String())
	}
}

func TestTrace(t *testing.T) {
	s, handler := newTestServer(t)
	var changed []string
	s.OnTraceChange = func(events []string) { changed = events }

	w := do(s, http.MethodGet, "/trace", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ChatText"`) {
		t.Fatalf("get trace = %d %s", w.Code, w.Body.String())
	}

	w = do(s, http.MethodPut, "/trace", `{"events":["SignEdit","TileEdit"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put trace = %d %s", w.Code, w.Body.String())
	}
	if got := handler.Config().TraceEvents; len(got) != 2 || got[0] != "SignEdit" {
		t.Fatalf("handler trace = %v", got)
	}
	if len(changed) != 2 {
		t.Fatalf("OnTraceChange got %v", changed)
	}

	w = do(s, http.MethodPut, "/trace", `{"events":["Teleporting"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad event name = %d", w.Code)
	}
	if got := handler.Config().TraceEvents; len(got) != 2 {
		t.Fatalf("rejected update changed trace to %v", got)
	}

	if w = do(s, http.MethodPut, "/trace", `{`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d", w.Code)
	}
}

func TestPlayers(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(s, http.MethodGet, "/players", "")

	var views []playerView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 || views[0].Name != "alice" || views[1].Index != 4 {
		t.Fatalf("players = %+v", views)
	}
}
