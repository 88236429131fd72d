package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SpideyPotter/InsightEye/pkg/types"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     checkWSOrigin,
}

// checkWSOrigin accepts same-host origins, plus the CORS allow list when
// CORS is enabled.
func checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if corsEnabled {
		for _, o := range corsAllowedOrigins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// ws godoc
// @Summary      Live view updates
// @Description  Upgrades to a websocket that sends the current View, then every change as a JSON message.
// @Tags         view
// @Router       /ws [get]
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if zlog != nil {
			zlog.Debug().Err(err).Msg("ws upgrade failed")
		}
		return
	}
	defer conn.Close()
	wsClients.Inc()
	defer wsClients.Dec()

	// Subscribe before the snapshot so no change falls between the two.
	updates, unsubscribe := h.svc.Subscribe()
	defer unsubscribe()

	ctx, cancel := requestContext(r)
	defer cancel()

	// Clients only send control frames; the reader exists to process them
	// and to notice a closed connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(v types.View) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	snap := h.svc.View()
	if err := send(snap); err != nil {
		return
	}
	last := snap.Seq

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case v, ok := <-updates:
			if !ok {
				return
			}
			if v.Seq <= last {
				continue
			}
			last = v.Seq
			if err := send(v); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
			return
		}
	}
}
