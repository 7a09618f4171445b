package service

import (
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

// validatePushRequest splits a push batch into the items safe to apply and
// per-item invalid_payload rejections. A malformed item never aborts the
// rest of the batch.
func validatePushRequest(req models.PushRequest) (models.PushRequest, []models.PushConflict) {
	var rejected []models.PushConflict
	valid := models.PushRequest{Deleted: req.Deleted}

	for _, rec := range req.Created {
		if err := validateCreated(rec); err != nil {
			rejected = append(rejected, models.PushConflict{
				ClientID: rec.ID,
				Type:     "create",
				Reason:   models.ReasonInvalidPayload,
			})
			continue
		}
		valid.Created = append(valid.Created, rec)
	}

	for _, upd := range req.Updated {
		if err := validateUpdated(upd); err != nil {
			rejected = append(rejected, models.PushConflict{
				ClientID: upd.ClientID,
				ServerID: upd.ServerID,
				Type:     "update",
				Reason:   models.ReasonInvalidPayload,
			})
			continue
		}
		valid.Updated = append(valid.Updated, upd)
	}

	return valid, rejected
}

func validateCreated(rec models.Record) error {
	if rec.ID == "" {
		return ErrValidationNoClientID
	}
	return validateRecord(rec)
}

func validateUpdated(upd models.RecordUpdate) error {
	if upd.ServerID == 0 && upd.ClientID == "" {
		return ErrValidationNoClientID
	}
	if upd.Type != nil && !upd.Type.Valid() {
		return ErrValidationInvalidRecordType
	}
	if upd.Amount != nil && !upd.Amount.IsPositive() {
		return ErrValidationNonPositiveAmount
	}
	if upd.Category != nil && *upd.Category == "" {
		return ErrValidationNoCategory
	}
	if upd.LedgerID != nil && *upd.LedgerID == "" {
		return ErrValidationNoLedger
	}
	if upd.Date != nil && upd.Date.IsZero() {
		return ErrValidationNoDate
	}
	return nil
}
