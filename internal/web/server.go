package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"i2cgps/internal/poller"
)

// StatusSource is implemented by *poller.Service.
type StatusSource interface {
	Snapshot() poller.Snapshot
}

type StatusResponse struct {
	Service   string          `json:"service"`
	NowUTC    string          `json:"now_utc"`
	UptimeSec float64         `json:"uptime_sec"`
	GPS       poller.Snapshot `json:"gps"`
}

const (
	wsWriteTimeout = 5 * time.Second
	wsPingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func Handler(status StatusSource, fixes *FixBroadcaster, logs *LogBuffer, log *logrus.Entry) http.Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("prefix", "web")
	started := time.Now()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		now := time.Now()
		resp := StatusResponse{
			Service:   "i2cgps",
			NowUTC:    now.UTC().Format(time.RFC3339Nano),
			UptimeSec: now.Sub(started).Seconds(),
		}
		if status != nil {
			resp.GPS = status.Snapshot()
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("/api/fix", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		msg, ok := fixes.Last()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, msg)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if fixes == nil {
			http.Error(w, "stream unavailable", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		serveStream(conn, fixes, log)
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}
	return mux
}

func serveStream(conn *websocket.Conn, fixes *FixBroadcaster, log *logrus.Entry) {
	defer conn.Close()

	id, ch := fixes.Subscribe(8)
	defer fixes.Unsubscribe(id)

	// Reader loop only to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Debug("websocket closed")
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func Serve(ctx context.Context, listenAddr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
