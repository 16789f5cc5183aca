package record

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory Store with the same contract as SQLStore.
// It backs unit tests and local development without a MySQL instance.
// Safe for concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	recs   map[int64]*UserRecord
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1, recs: make(map[int64]*UserRecord)}
}

func (s *MemStore) FindByID(_ context.Context, id int64) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *MemStore) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.recs {
		if rec.Username == username {
			return copyRecord(rec), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) FindByEmail(_ context.Context, email string) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.recs {
		if rec.Email == email {
			return copyRecord(rec), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs), nil
}

func (s *MemStore) Search(_ context.Context, pattern string, offset, limit int) ([]UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*UserRecord
	needle := strings.ToLower(pattern)
	for _, rec := range s.recs {
		if pattern == "*" || strings.Contains(strings.ToLower(rec.Username), needle) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })
	return pageOf(matched, offset, limit), nil
}

func (s *MemStore) ListAll(_ context.Context, offset, limit int) ([]UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pageOf(s.sortedByID(nil), offset, limit), nil
}

func (s *MemStore) ListChangedSince(_ context.Context, since time.Time, offset, limit int) ([]UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	changed := s.sortedByID(func(rec *UserRecord) bool {
		return !rec.LastModifiedAt.Before(since)
	})
	return pageOf(changed, offset, limit), nil
}

func (s *MemStore) LastSyncTime(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	for _, rec := range s.recs {
		if rec.LastSyncedAt != nil && rec.LastSyncedAt.After(last) {
			last = *rec.LastSyncedAt
		}
	}
	return last, nil
}

func (s *MemStore) Insert(_ context.Context, rec *UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.LastModifiedAt = now
	rec.CompanyID = DefaultCompanyID
	rec.PartnerID = DefaultPartnerID
	rec.CreatedBy = DefaultCreatedBy
	rec.ID = s.nextID
	s.nextID++
	s.recs[rec.ID] = copyRecord(rec)
	return nil
}

func (s *MemStore) Update(_ context.Context, rec *UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.recs[rec.ID]
	if !ok {
		return ErrNotFound
	}
	rec.LastModifiedAt = time.Now().UTC()
	updated := copyRecord(rec)
	updated.PasswordHash = stored.PasswordHash
	updated.LastSyncedAt = stored.LastSyncedAt
	s.recs[rec.ID] = updated
	return nil
}

func (s *MemStore) SetPassword(_ context.Context, id int64, hash *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	if hash == nil {
		rec.PasswordHash = nil
	} else {
		h := *hash
		rec.PasswordHash = &h
	}
	rec.LastModifiedAt = time.Now().UTC()
	return nil
}

func (s *MemStore) MarkSynced(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	// Forward only; marking synced is not a modification.
	if rec.LastSyncedAt == nil || !rec.LastSyncedAt.After(at) {
		t := at
		rec.LastSyncedAt = &t
	}
	return nil
}

func (s *MemStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recs[id]; !ok {
		return false, nil
	}
	delete(s.recs, id)
	return true, nil
}

func (s *MemStore) sortedByID(keep func(*UserRecord) bool) []*UserRecord {
	var out []*UserRecord
	for _, rec := range s.recs {
		if keep == nil || keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func pageOf(recs []*UserRecord, offset, limit int) []UserRecord {
	if offset >= len(recs) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(recs) {
		end = len(recs)
	}
	page := make([]UserRecord, 0, end-offset)
	for _, rec := range recs[offset:end] {
		page = append(page, *copyRecord(rec))
	}
	return page
}

func copyRecord(rec *UserRecord) *UserRecord {
	cp := *rec
	if rec.PasswordHash != nil {
		h := *rec.PasswordHash
		cp.PasswordHash = &h
	}
	if rec.LastSyncedAt != nil {
		t := *rec.LastSyncedAt
		cp.LastSyncedAt = &t
	}
	return &cp
}
