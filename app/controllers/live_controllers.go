package controllers

import (
	"time"

	"github.com/feastly/feastly/pkg/ctx"
	"github.com/feastly/feastly/pkg/sse"
	"github.com/feastly/feastly/pkg/ws"
)

const sseHeartbeat = 25 * time.Second

// LiveController streams order updates to the signed-in user.
type LiveController struct {
	hub *ws.Hub
}

func NewLiveController(hub *ws.Hub) *LiveController {
	return &LiveController{hub: hub}
}

// Orders upgrades to a websocket. Browsers pass the token as ?token=.
func (c *LiveController) Orders(x *ctx.Context) {
	ws.Upgrade(x.W, x.R, c.hub, x.UserID())
}

// Events carries the same updates as Orders over Server-Sent Events.
func (c *LiveController) Events(x *ctx.Context) {
	stream, err := sse.New(x.W, x.R)
	if err != nil {
		x.Logger().Warn("sse: cannot stream", "error", err)
		return
	}
	updates, unsubscribe := c.hub.Subscribe(x.UserID())
	defer unsubscribe()

	if err := stream.Pipe("order", updates, sseHeartbeat); err != nil {
		x.Logger().Debug("sse: stream closed", "error", err)
	}
}
