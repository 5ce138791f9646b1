package chat

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/intrusionbot/internal/bot"
	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conversation is the per-socket bot state.
type Conversation interface {
	Handle(ctx context.Context, text string) error
	Close()
}

// StartFunc opens a conversation that replies through out.
type StartFunc func(ctx context.Context, id string, out bot.Sender) Conversation

// BotStarter adapts a bot to StartFunc.
func BotStarter(b *bot.Bot) StartFunc {
	return func(ctx context.Context, id string, out bot.Sender) Conversation {
		return b.NewSession(ctx, id, out)
	}
}

type Handler struct {
	start    StartFunc
	logger   logging.Logger
	upgrader websocket.Upgrader
}

func NewHandler(start StartFunc, l logging.Logger) *Handler {
	return &Handler{
		start:  start,
		logger: l.With("module", "chat"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := uuid.NewString()
	c := newConn(ws)
	conv := h.start(ctx, id, c)
	l := h.logger.With("conversation", id)
	l.Info(ctx, "conversation opened", "remote", r.RemoteAddr)

	go c.writePump()

	err = c.readPump(func(msg Inbound) {
		if err := conv.Handle(ctx, msg.Text); err != nil {
			l.Debug(ctx, "message handling failed", "error", err)
		}
	})
	if err != nil {
		l.Debug(ctx, "websocket read ended", "error", err)
	}

	conv.Close()
	c.close()
	l.Info(ctx, "conversation closed")
}
