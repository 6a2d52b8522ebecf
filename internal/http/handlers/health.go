package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Pingers is ready only when every member is.
type Pingers []Pinger

func (p Pingers) Ping(ctx context.Context) error {
	for _, pinger := range p {
		if pinger == nil {
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

type HealthHandler struct {
	store Pinger
	log   *slog.Logger
}

// create a new instance of the health handler
func NewHealthHandler(store Pinger, log *slog.Logger) *HealthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &HealthHandler{store: store, log: log}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.store != nil {
		cctx, cancel := requestContext(ctx, 2*time.Second)
		defer cancel()

		if err := h.store.Ping(cctx); err != nil {
			h.log.WarnContext(ctx.Request.Context(), "readiness check failed", "err", err)
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
