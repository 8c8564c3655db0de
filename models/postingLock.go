package models

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireBusinessPostingLock serializes stock posting per business across
// instances using MySQL advisory locks. Every flow that mutates product
// quantities takes this lock before validating, which closes the window
// between the net-effect check and the apply.
//
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// transaction that will do the posting.
func AcquireBusinessPostingLock(tx *gorm.DB, businessId string) error {
	lockName := fmt.Sprintf("posting:%s", businessId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for business_id=%s", businessId)
	}
	return nil
}

func ReleaseBusinessPostingLock(tx *gorm.DB, businessId string) {
	lockName := fmt.Sprintf("posting:%s", businessId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
