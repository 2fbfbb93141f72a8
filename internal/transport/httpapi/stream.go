package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"toastd/internal/toast"
	logx "toastd/pkg/logx"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamReadLimit  = 4096
)

// streamMessage is sent to clients. Type is "state" or "hello".
type streamMessage struct {
	Type    string      `json:"type"`
	Session string      `json:"session,omitempty"`
	Toasts  []ToastView `json:"toasts"`
}

// clientMessage is accepted from clients: {"type":"dismiss","id":"3"}.
// An empty id dismisses every toast.
type clientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// handleStream pushes the full state on connect and after every change.
// A slow client only ever sees the newest state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("stream upgrade failed", logx.Err(err))
		return
	}
	session := uuid.NewString()
	log := s.log.With(logx.String("session", session))

	s.streams.Add(1)
	s.metrics.streams.Inc()
	defer func() {
		s.streams.Add(-1)
		s.metrics.streams.Dec()
		_ = conn.Close()
		log.Debug("stream closed")
	}()
	log.Debug("stream opened", logx.String("remote", r.RemoteAddr))

	latest := make(chan toast.State, 1)
	unsubscribe := s.store.Subscribe(func(st toast.State) {
		select {
		case latest <- st:
			return
		default:
		}
		select {
		case <-latest:
		default:
		}
		select {
		case latest <- st:
		default:
		}
	})
	defer unsubscribe()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		s.streamRead(conn, log)
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(v)
	}
	if err := write(streamMessage{Type: "hello", Session: session, Toasts: []ToastView{}}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return
		case <-readerDone:
			return
		case st := <-latest:
			if err := write(streamMessage{Type: "state", Toasts: stateView(st).Toasts}); err != nil {
				log.Debug("stream write failed", logx.Err(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) streamRead(conn *websocket.Conn, log logx.Logger) {
	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("stream read failed", logx.Err(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug("stream message ignored", logx.Err(err))
			continue
		}
		switch msg.Type {
		case "dismiss":
			if msg.ID == "" {
				s.store.Dismiss("")
				continue
			}
			if !s.dismiss(msg.ID) {
				log.Debug("stream dismiss of unknown toast", logx.String("toast_id", msg.ID))
			}
		default:
			log.Debug("stream message type unknown", logx.String("type", msg.Type))
		}
	}
}
