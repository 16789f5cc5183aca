package record

import (
	"time"
)

// Fixed tenant/ownership values applied to every record created through
// this deployment. The legacy schema requires them to be populated.
const (
	DefaultCompanyID = 18
	DefaultPartnerID = 1
	DefaultCreatedBy = 1
)

// UserRecord represents one row of the external legacy user table.
type UserRecord struct {
	ID             int64      `db:"userId"`
	Username       string     `db:"userName"`
	Email          string     `db:"email"`
	FirstName      string     `db:"firstName"`
	LastName       string     `db:"lastName"`
	PasswordHash   *string    `db:"bCryptPassword"`
	Status         string     `db:"status"`
	MobilePhone    string     `db:"phoneMobile"`
	OfficePhone    string     `db:"phoneOffice"`
	CreatedAt      time.Time  `db:"whenAdded"`
	LastModifiedAt time.Time  `db:"ts"`
	LastSyncedAt   *time.Time `db:"last_sync_date"`
	CompanyID      int        `db:"companyId"`
	PartnerID      int16      `db:"partnerId"`
	CreatedBy      int        `db:"whoAdded"`
}

// HasPassword reports whether a credential is currently set.
// A cleared credential is indistinguishable from one never set.
func (r *UserRecord) HasPassword() bool {
	return r.PasswordHash != nil && *r.PasswordHash != ""
}
