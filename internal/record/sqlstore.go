package record

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Column list matching the legacy deployment schema. The semantic
// fields are fixed; the column names are a binding detail of the
// external database.
const selectColumns = "userId, userName, email, firstName, lastName, bCryptPassword, " +
	"status, phoneMobile, phoneOffice, whenAdded, ts, last_sync_date, " +
	"companyId, partnerId, whoAdded"

// SQLStore implements Store against the external MySQL user table.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore creates a new store over the given connection pool.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	var rec UserRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT `+selectColumns+` FROM User WHERE userId = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageError("find by id", err)
	}
	return &rec, nil
}

func (s *SQLStore) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	var rec UserRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT `+selectColumns+` FROM User WHERE userName = ?`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageError("find by username", err)
	}
	return &rec, nil
}

func (s *SQLStore) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	var rec UserRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT `+selectColumns+` FROM User WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageError("find by email", err)
	}
	return &rec, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM User`); err != nil {
		return 0, storageError("count", err)
	}
	return count, nil
}

func (s *SQLStore) Search(ctx context.Context, pattern string, offset, limit int) ([]UserRecord, error) {
	var recs []UserRecord
	var err error
	if pattern == "*" {
		err = s.db.SelectContext(ctx, &recs,
			`SELECT `+selectColumns+` FROM User ORDER BY userName LIMIT ? OFFSET ?`,
			limit, offset)
	} else {
		like := "%" + strings.ToLower(pattern) + "%"
		err = s.db.SelectContext(ctx, &recs,
			`SELECT `+selectColumns+` FROM User WHERE LOWER(userName) LIKE ? ORDER BY userName LIMIT ? OFFSET ?`,
			like, limit, offset)
	}
	if err != nil {
		return nil, storageError("search", err)
	}
	return recs, nil
}

func (s *SQLStore) ListAll(ctx context.Context, offset, limit int) ([]UserRecord, error) {
	var recs []UserRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT `+selectColumns+` FROM User ORDER BY userId LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, storageError("list all", err)
	}
	return recs, nil
}

func (s *SQLStore) ListChangedSince(ctx context.Context, since time.Time, offset, limit int) ([]UserRecord, error) {
	var recs []UserRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT `+selectColumns+` FROM User WHERE ts >= ? ORDER BY userId LIMIT ? OFFSET ?`,
		since, limit, offset)
	if err != nil {
		return nil, storageError("list changed since", err)
	}
	return recs, nil
}

func (s *SQLStore) LastSyncTime(ctx context.Context) (time.Time, error) {
	var last sql.NullTime
	if err := s.db.GetContext(ctx, &last, `SELECT MAX(last_sync_date) FROM User`); err != nil {
		return time.Time{}, storageError("last sync time", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

func (s *SQLStore) Insert(ctx context.Context, rec *UserRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.LastModifiedAt = now
	rec.CompanyID = DefaultCompanyID
	rec.PartnerID = DefaultPartnerID
	rec.CreatedBy = DefaultCreatedBy

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO User (userName, email, firstName, lastName, status, phoneMobile, phoneOffice,
			whenAdded, ts, companyId, partnerId, whoAdded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Username, rec.Email, rec.FirstName, rec.LastName, rec.Status,
		rec.MobilePhone, rec.OfficePhone, rec.CreatedAt, rec.LastModifiedAt,
		rec.CompanyID, rec.PartnerID, rec.CreatedBy)
	if err != nil {
		return storageError("insert", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storageError("insert", err)
	}
	rec.ID = id
	return nil
}

func (s *SQLStore) Update(ctx context.Context, rec *UserRecord) error {
	rec.LastModifiedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE User SET userName = ?, email = ?, firstName = ?, lastName = ?,
			status = ?, phoneMobile = ?, phoneOffice = ?, ts = ?
		 WHERE userId = ?`,
		rec.Username, rec.Email, rec.FirstName, rec.LastName,
		rec.Status, rec.MobilePhone, rec.OfficePhone, rec.LastModifiedAt,
		rec.ID)
	if err != nil {
		return storageError("update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) SetPassword(ctx context.Context, id int64, hash *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE User SET bCryptPassword = ?, ts = ? WHERE userId = ?`,
		hash, time.Now().UTC(), id)
	if err != nil {
		return storageError("set password", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	// ts = ts suppresses the ON UPDATE auto-stamp: marking a record as
	// synced is not a modification and must not re-enter the next
	// incremental window. The mark itself only moves forward.
	_, err := s.db.ExecContext(ctx,
		`UPDATE User SET last_sync_date = ?, ts = ts
		 WHERE userId = ? AND (last_sync_date IS NULL OR last_sync_date <= ?)`,
		at, id, at)
	if err != nil {
		return storageError("mark synced", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM User WHERE userId = ?`, id)
	if err != nil {
		return false, storageError("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError("delete", err)
	}
	return n > 0, nil
}
