package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/squares-backend/internal/lobby"
	"github.com/DoyleJ11/squares-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 60 * time.Second
)

// Handler streams a BoardSnapshot message for the current board and then for
// every committed change. Clients may send {"type":"Ping"} to keep the
// connection alive.
func Handler(l *lobby.Lobby, log *zap.Logger, buffer int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		subscriberID := uuid.NewString()
		out, err := l.Subscribe(r.Context(), subscriberID, buffer)
		if err != nil {
			conn.Close(websocket.StatusTryAgainLater, "lobby unavailable")
			return
		}
		defer l.Unsubscribe(subscriberID)
		log.Debug("subscriber connected", zap.String("subscriber_id", subscriberID))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine
		writes := make(chan types.ServerMessage, 1)
		go func() {
			defer cancel()
			for {
				var msg types.ServerMessage
				select {
				case snap, ok := <-out:
					if !ok {
						// dropped as a slow subscriber or lobby shut down
						conn.Close(websocket.StatusGoingAway, "subscription ended")
						return
					}
					board := types.BoardFromSnapshot(snap)
					msg = types.ServerMessage{Type: "BoardSnapshot", Board: &board}
				case msg = <-writes:
				case <-ctx.Done():
					return
				}
				wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
				err := wsjson.Write(wctx, conn, msg)
				wcancel()
				if err != nil {
					return
				}
			}
		}()

		// Reader loop
		for {
			rctx, rcancel := context.WithTimeout(ctx, readTimeout)
			var cm types.ClientMessage
			err := wsjson.Read(rctx, conn, &cm)
			rcancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("subscriber read ended", zap.String("subscriber_id", subscriberID), zap.Error(err))
				}
				return
			}

			reply := types.ServerMessage{Type: "Pong"}
			if cm.Type != "Ping" {
				reply = types.ServerMessage{Type: "Error", Error: "unknown type"}
			}
			select {
			case writes <- reply:
			case <-ctx.Done():
				return
			}
		}
	}
}
