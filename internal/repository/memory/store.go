// Package memory is a process-local implementation of the repositories,
// used by tests and by the "memory" store driver for local development.
// It mirrors the Postgres constraints: unique emails and slugs, cascading
// user deletes and restricted category deletes.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"couponme/api/internal/models"
	"couponme/api/internal/repository"
)

type Store struct {
	mu         sync.RWMutex
	users      map[string]models.User
	sessions   map[string]models.Session
	categories map[string]models.Category
	coupons    map[string]models.Coupon
	uploads    map[string]models.Upload
	seq        map[string]uint64
	next       uint64
	now        func() time.Time
}

func New() *Store {
	return &Store{
		users:      make(map[string]models.User),
		sessions:   make(map[string]models.Session),
		categories: make(map[string]models.Category),
		coupons:    make(map[string]models.Coupon),
		uploads:    make(map[string]models.Upload),
		seq:        make(map[string]uint64),
		now:        time.Now,
	}
}

func (s *Store) Users() *UserRepository { return &UserRepository{s} }

func (s *Store) Sessions() *SessionRepository { return &SessionRepository{s} }

func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s} }

func (s *Store) Coupons() *CouponRepository { return &CouponRepository{s} }

func (s *Store) Uploads() *UploadRepository { return &UploadRepository{s} }

// SetClock replaces the time source used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Ping satisfies the health check contract.
func (s *Store) Ping(context.Context) error { return nil }

// track records insertion order so equal timestamps still sort deterministically.
func (s *Store) track(id string) {
	s.next++
	s.seq[id] = s.next
}

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = user
	r.s.track(user.ID)
	return nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepository) List(_ context.Context, role *models.UserRole) ([]models.UserWithStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[string]int)
	for _, coupon := range r.s.coupons {
		counts[coupon.BusinessID]++
	}

	users := make([]models.UserWithStats, 0, len(r.s.users))
	for _, user := range r.s.users {
		if role != nil && user.Role != *role {
			continue
		}
		users = append(users, models.UserWithStats{User: user, CouponCount: counts[user.ID]})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return r.s.seq[users[i].ID] > r.s.seq[users[j].ID]
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (r *UserRepository) Update(_ context.Context, id string, patch models.UserPatch) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.ClearMembership {
		user.MembershipExpiry = nil
	} else if patch.MembershipExpiry != nil {
		expiry := *patch.MembershipExpiry
		user.MembershipExpiry = &expiry
	}
	user.UpdatedAt = r.s.now()
	r.s.users[id] = user
	return user, nil
}

func (r *UserRepository) SetMembershipExpiry(_ context.Context, id string, expiry time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.MembershipExpiry = &expiry
	user.UpdatedAt = r.s.now()
	r.s.users[id] = user
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.s.users, id)
	for couponID, coupon := range r.s.coupons {
		if coupon.BusinessID == id {
			delete(r.s.coupons, couponID)
		}
	}
	for sessionID, session := range r.s.sessions {
		if session.UserID == id {
			delete(r.s.sessions, sessionID)
		}
	}
	for uploadID, upload := range r.s.uploads {
		if upload.UserID == id {
			delete(r.s.uploads, uploadID)
		}
	}
	return nil
}

func (r *UserRepository) CountByRole(_ context.Context) (map[models.UserRole]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[models.UserRole]int, len(models.UserRoles))
	for _, role := range models.UserRoles {
		counts[role] = 0
	}
	for _, user := range r.s.users {
		counts[user.Role]++
	}
	return counts, nil
}

func (r *UserRepository) CountActiveMembers(_ context.Context, now time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, user := range r.s.users {
		if user.MembershipExpiry != nil && !user.MembershipExpiry.Before(now) {
			count++
		}
	}
	return count, nil
}

type SessionRepository struct{ s *Store }

func (r *SessionRepository) Create(_ context.Context, session models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	session.CreatedAt, session.LastSeenAt = now, now
	r.s.sessions[session.ID] = session
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (models.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (r *SessionRepository) FindByRefreshHash(_ context.Context, refreshHash []byte) (models.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, session := range r.s.sessions {
		if bytes.Equal(session.RefreshTokenHash, refreshHash) {
			return session, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (r *SessionRepository) Rotate(_ context.Context, id string, refreshHash []byte, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.RefreshTokenHash = refreshHash
	session.ExpiresAt = expiresAt
	session.LastSeenAt = r.s.now()
	r.s.sessions[id] = session
	return nil
}

func (r *SessionRepository) CountByUser(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, session := range r.s.sessions {
		if session.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *SessionRepository) DeleteOldestSessions(_ context.Context, userID string, keepLatest int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	owned := make([]models.Session, 0)
	for _, session := range r.s.sessions {
		if session.UserID == userID {
			owned = append(owned, session)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].LastSeenAt.After(owned[j].LastSeenAt)
	})
	for i := keepLatest; i < len(owned); i++ {
		delete(r.s.sessions, owned[i].ID)
	}
	return nil
}

func (r *SessionRepository) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(r.s.sessions, id)
	return nil
}

func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var removed int64
	for id, session := range r.s.sessions {
		if session.ExpiresAt.Before(now) {
			delete(r.s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (r *SessionRepository) Touch(_ context.Context, sessionID string, ip string, userAgent string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[sessionID]
	if !ok {
		return nil
	}
	session.LastSeenAt = r.s.now()
	if ip != "" {
		session.IPAddress = ip
	}
	if userAgent != "" {
		session.UserAgent = userAgent
	}
	r.s.sessions[sessionID] = session
	return nil
}
