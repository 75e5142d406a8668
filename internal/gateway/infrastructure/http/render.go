package http

import (
	"encoding/json"
	"net/http"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/application"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type initiateResponse struct {
	Result   application.Result  `json:"result"`
	Redirect string              `json:"redirect,omitempty"`
	Notice   *application.Notice `json:"notice,omitempty"`
}

type reconcileResponse struct {
	Action   application.Action  `json:"action"`
	Redirect string              `json:"redirect,omitempty"`
	Notice   *application.Notice `json:"notice,omitempty"`
}

// reconcileView hides rejected ownership and id checks: the caller sees the
// same neutral response as for an order that needed no change.
func reconcileView(res application.ReconcileResult) reconcileResponse {
	if res.Action == application.ActionRejected {
		return reconcileResponse{Action: application.ActionNone}
	}
	return reconcileResponse{Action: res.Action, Redirect: res.Redirect, Notice: res.Notice}
}
