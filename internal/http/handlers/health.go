package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnlab-assistant/internal/http/response"
)

// Probe reports whether one dependency can serve traffic.
type Probe func(ctx context.Context) error

const probeTimeout = 2 * time.Second

type HealthHandler struct {
	probes map[string]Probe
}

func NewHealthHandler(probes map[string]Probe) *HealthHandler {
	return &HealthHandler{probes: probes}
}

// HealthCheck is the liveness probe and never touches dependencies.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready runs every probe and answers 503 naming the first failing dependency.
func (h *HealthHandler) Ready(c *gin.Context) {
	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	var failed error
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		err := h.probes[name](ctx)
		cancel()
		if err != nil {
			checks[name] = "down"
			if failed == nil {
				failed = fmt.Errorf("%s unavailable: %w", name, err)
			}
			continue
		}
		checks[name] = "ok"
	}

	if failed != nil {
		_ = c.Error(failed)
		response.RespondError(c, http.StatusServiceUnavailable, "not_ready", failed)
		return
	}
	response.RespondData(c, gin.H{"checks": checks})
}
