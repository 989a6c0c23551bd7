package gateway

import (
	"net/http"
	"time"

	"github.com/DeBrosOfficial/statehead/pkg/httputil"
)

// healthResponse is the JSON structure used by healthHandler
type healthResponse struct {
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	Uptime       string    `json:"uptime"`
	PrimaryNodes int       `json:"primary_nodes"`
	SidecarNodes int       `json:"sidecar_nodes"`
}

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		StartedAt: g.startedAt,
		Uptime:    time.Since(g.startedAt).String(),
	}
	if g.registry != nil {
		resp.PrimaryNodes, resp.SidecarNodes = g.registry.Len()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
