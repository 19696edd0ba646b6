package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/summary"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsPingEvery  = 30 * time.Second
	wsWriteLimit = 10 * time.Second
)

// CartFeed delivers change notices for one account until stop is called.
type CartFeed interface {
	Subscribe(ctx context.Context, accountID string) (<-chan string, func())
}

type CartLiveHandler struct {
	Service       *cart.Service
	Feed          CartFeed
	Log           *logger.Logger
	AllowedOrigin string
}

type cartMessage struct {
	Type   string           `json:"type"`
	Change string           `json:"change,omitempty"`
	Cart   *summary.Summary `json:"cart,omitempty"`
}

func (h *CartLiveHandler) Register(r chi.Router) {
	r.Get("/cart/ws", h.serve)
}

func (h *CartLiveHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || h.AllowedOrigin == "" || o == h.AllowedOrigin
		},
	}
}

func (h *CartLiveHandler) serve(w http.ResponseWriter, r *http.Request) {
	accountID := mustSession(r).AccountID
	up := h.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only service control frames; any error means the client left.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	notices, stop := h.Feed.Subscribe(ctx, accountID)
	defer stop()

	if err := h.push(ctx, conn, accountID, "connected"); err != nil {
		return
	}

	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-notices:
			if !ok {
				return
			}
			if err := h.push(ctx, conn, accountID, change); err != nil {
				h.Log.Debug("websocket push failed", "account_id", accountID, "error", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteLimit))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// push sends the current cart state; notices carry no payload of their own.
func (h *CartLiveHandler) push(ctx context.Context, conn *websocket.Conn, accountID, change string) error {
	qctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	msg := cartMessage{Type: "cart_updated", Change: change}
	if change == "connected" {
		msg = cartMessage{Type: "connected"}
	}
	sum, err := h.Service.Get(qctx, accountID)
	if err != nil {
		h.Log.Warn("cart snapshot failed", "account_id", accountID, "error", err)
	} else {
		msg.Cart = &sum
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteLimit))
	return conn.WriteJSON(msg)
}
