package http

import (
	"errors"
	"net/http"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/service"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrValidationNoClientID:        http.StatusBadRequest,
	service.ErrValidationInvalidRecordType: http.StatusBadRequest,
	service.ErrValidationNonPositiveAmount: http.StatusBadRequest,
	service.ErrValidationNoCategory:        http.StatusBadRequest,
	service.ErrValidationNoLedger:          http.StatusBadRequest,
	service.ErrValidationNoDate:            http.StatusBadRequest,

	store.ErrRecordNotFound:  http.StatusNotFound,
	store.ErrVersionMismatch: http.StatusConflict,

	store.ErrExecutingQuery:    http.StatusInternalServerError,
	store.ErrBeginTransaction:  http.StatusInternalServerError,
	store.ErrCommitTransaction: http.StatusInternalServerError,
	store.ErrScanningRow:       http.StatusInternalServerError,
	store.ErrScanningRows:      http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
