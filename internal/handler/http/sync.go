package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/utils"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.pull").Msg("no user ID was given")
		http.Error(w, "no user ID was given", http.StatusBadRequest)
		return
	}

	sinceVersion := int64(0)
	if raw := r.URL.Query().Get("lastSyncVersion"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			log.Error().Str("func", "*Handler.pull").Str("lastSyncVersion", raw).Msg("invalid lastSyncVersion")
			http.Error(w, "invalid lastSyncVersion", http.StatusBadRequest)
			return
		}
		sinceVersion = parsed
	}

	response, err := h.services.SyncService.Pull(ctx, userID, sinceVersion)
	if err != nil {
		log.Err(err).Str("func", "*Handler.pull").Msg("error pulling changes")
		http.Error(w, "error pulling changes", statusFromError(err))
		return
	}

	utils.WriteJSON(w, response, http.StatusOK)
}

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.push").Msg("no user ID was given")
		http.Error(w, "no user ID was given", http.StatusBadRequest)
		return
	}

	var pushRequest models.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&pushRequest); err != nil {
		log.Err(err).Str("func", "*Handler.push").Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	response, err := h.services.SyncService.Push(ctx, userID, pushRequest)
	if err != nil {
		log.Err(err).Str("func", "*Handler.push").Msg("error applying push batch")
		http.Error(w, "error applying push batch", statusFromError(err))
		return
	}

	utils.WriteJSON(w, response, http.StatusOK)
}

func (h *Handler) fullSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.fullSync").Msg("no user ID was given")
		http.Error(w, "no user ID was given", http.StatusBadRequest)
		return
	}

	response, err := h.services.SyncService.FullSync(ctx, userID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.fullSync").Msg("error loading full record set")
		http.Error(w, "error loading full record set", statusFromError(err))
		return
	}

	utils.WriteJSON(w, response, http.StatusOK)
}
