package http

import (
	"context"
	"net/http"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/utils"
)

// authenticate enforces bearer-token authentication on the sync routes.
//
// It extracts the token from the "Authorization" header, validates its
// signature, expiry and issuer, and stores the authenticated user's id in
// the request context under [utils.UserIDCtxKey]. The calling device's
// X-Device-ID header, when present, is stored under [utils.DeviceIDCtxKey]
// so handlers and logs can tell concurrent devices of one user apart.
//
// Requests without a parseable, valid token are rejected with
// HTTP 401 Unauthorized.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Err(ErrEmptyAuthorizationHeader).Send()
			http.Error(w, ErrEmptyAuthorizationHeader.Error(), http.StatusUnauthorized)
			return
		}

		tokenString, err := utils.ParseBearerToken(authHeader)
		if err != nil {
			log.Err(err).Send()
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		userID, err := utils.ValidateToken(tokenString, h.auth.TokenSignKey, h.auth.TokenIssuer)
		if err != nil {
			log.Err(err).Msg("error occurred during validating token")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), utils.UserIDCtxKey, userID)
		if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
			ctx = context.WithValue(ctx, utils.DeviceIDCtxKey, deviceID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
