package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/guidecraft/guidecraft/internal/builder"
)

// writeWait bounds how long a reload broadcast may block on one client.
const writeWait = 5 * time.Second

// reloadScript is injected into served HTML pages when live reload is
// enabled. It reconnects with backoff so a dev-server restart does not
// strand open tabs.
const reloadScript = `<script>
(function () {
  var delay = 500;
  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onmessage = function () { location.reload(); };
    ws.onopen = function () { delay = 500; };
    ws.onclose = function () {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 10000);
    };
  }
  connect();
})();
</script>
`

func (s *DevServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Default accept options verify the Origin header against the Host,
	// which is the right policy for a local dev server.
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		_ = conn.CloseNow()
	}()

	// The client never sends application data; the read loop just
	// detects disconnects.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// broadcastReload notifies every connected client that a new build was
// published. A client that cannot be written to in time is dropped.
func (s *DevServer) broadcastReload(ctx context.Context, info builder.Info) {
	payload, err := json.Marshal(UpdateMessage{
		Type:      "reload",
		BuildID:   info.ID,
		Timestamp: info.Time,
	})
	if err != nil {
		s.log.Warn(ctx, err, "marshal reload message")
		payload = []byte(`{"type":"reload"}`)
	}

	s.clientsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.clientsMu.Unlock()

	for _, conn := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeWait)
		err := conn.Write(wctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			s.clientsMu.Lock()
			delete(s.clients, conn)
			s.clientsMu.Unlock()
			_ = conn.CloseNow()
		}
	}
}
