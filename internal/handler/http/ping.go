package http

import (
	"net/http"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/utils"
)

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.services.AppInfoService.Ping(r.Context()), http.StatusOK)
}
