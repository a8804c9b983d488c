package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	companydomain "vyre/backend/internal/company/domain"
	invitationdomain "vyre/backend/internal/invitation/domain"
	sessiondomain "vyre/backend/internal/session/domain"
	userdomain "vyre/backend/internal/user/domain"
	userrepo "vyre/backend/internal/user/repository"
)

type userRecord struct {
	user      userdomain.User
	hash      string
	resetHash string
	resetExp  time.Time
}

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]*userRecord
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*userRecord{}}
}

func (r *memUserRepo) find(email string) *userRecord {
	for _, rec := range r.byID {
		if rec.user.Email == email {
			return rec
		}
	}
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		u := rec.user
		return &u, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec := r.find(email); rec != nil {
		u := rec.user
		return &u, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetCredentialsByEmail(ctx context.Context, email string) (*userdomain.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec := r.find(email); rec != nil {
		u := rec.user
		return &userdomain.Credentials{User: &u, PasswordHash: rec.hash}, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetCredentialsByID(ctx context.Context, id string) (*userdomain.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		u := rec.user
		return &userdomain.Credentials{User: &u, PasswordHash: rec.hash}, nil
	}
	return nil, nil
}

func (r *memUserRepo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byID {
		if rec.resetHash != "" && rec.resetHash == tokenHash && rec.resetExp.After(now) {
			rec.resetHash = ""
			rec.resetExp = time.Time{}
			u := rec.user
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(u.Email) != nil {
		return userrepo.ErrEmailTaken
	}
	r.byID[u.ID] = &userRecord{user: *u, hash: passwordHash}
	return nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		rec.hash = passwordHash
		rec.resetHash = ""
		rec.resetExp = time.Time{}
	}
	return nil
}

func (r *memUserRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		rec.resetHash = tokenHash
		rec.resetExp = expiresAt
	}
	return nil
}

func (r *memUserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		t := at
		rec.user.LastLoginAt = &t
	}
	return nil
}

func (r *memUserRepo) record(id string) userRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.byID[id]
}

func (r *memUserRepo) setActive(id string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].user.IsActive = active
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: map[string]*sessiondomain.Session{}}
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.ID] = &s2
	return nil
}

func (r *memSessionRepo) FindActive(ctx context.Context, userID, tokenHash string, now time.Time) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.UserID == userID && s.TokenHash == tokenHash && s.ExpiresAt.After(now) {
			s2 := *s
			return &s2, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) ListActive(ctx context.Context, userID string, now time.Time) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range r.m {
		if s.UserID == userID && s.ExpiresAt.After(now) {
			s2 := *s
			out = append(out, &s2)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memSessionRepo) DeleteByToken(ctx context.Context, userID, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.m {
		if s.UserID == userID && s.TokenHash == tokenHash {
			delete(r.m, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *memSessionRepo) DeleteByID(ctx context.Context, userID, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[sessionID]; ok && s.UserID == userID {
		delete(r.m, sessionID)
		return true, nil
	}
	return false, nil
}

func (r *memSessionRepo) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.m {
		if s.UserID == userID {
			delete(r.m, id)
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) countFor(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.m {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

func (r *memSessionRepo) all() []sessiondomain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sessiondomain.Session, 0, len(r.m))
	for _, s := range r.m {
		out = append(out, *s)
	}
	return out
}

type memCompanyRepo struct {
	mu sync.Mutex
	m  map[string]*companydomain.Company
}

func (r *memCompanyRepo) Create(ctx context.Context, c *companydomain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c2 := *c
	r.m[c.ID] = &c2
	return nil
}

type memInvitationRepo struct {
	mu sync.Mutex
	m  map[string]*invitationdomain.Invitation
}

func (r *memInvitationRepo) Create(ctx context.Context, inv *invitationdomain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i2 := *inv
	r.m[inv.ID] = &i2
	return nil
}

func (r *memInvitationRepo) FindPending(ctx context.Context, tokenHash string, now time.Time) (*invitationdomain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.m {
		if inv.TokenHash == tokenHash && inv.Pending(now) {
			i2 := *inv
			return &i2, nil
		}
	}
	return nil, nil
}

func (r *memInvitationRepo) MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.m[id]
	if !ok || inv.AcceptedAt != nil {
		return false, nil
	}
	t := at
	inv.AcceptedAt = &t
	return true, nil
}

func (r *memUserRepo) snapshot() map[string]userRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]userRecord, len(r.byID))
	for id, rec := range r.byID {
		out[id] = *rec
	}
	return out
}

func (r *memUserRepo) restore(snap map[string]userRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*userRecord, len(snap))
	for id, rec := range snap {
		rec := rec
		r.byID[id] = &rec
	}
}

func (r *memSessionRepo) snapshot() map[string]sessiondomain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]sessiondomain.Session, len(r.m))
	for id, s := range r.m {
		out[id] = *s
	}
	return out
}

func (r *memSessionRepo) restore(snap map[string]sessiondomain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = make(map[string]*sessiondomain.Session, len(snap))
	for id, s := range snap {
		s := s
		r.m[id] = &s
	}
}

// failingSessionRepo fails DeleteAllByUser and delegates everything else.
type failingSessionRepo struct {
	*memSessionRepo
}

func (r *failingSessionRepo) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	return 0, errors.New("connection reset")
}

// memTx runs fn against the in-memory stores one transaction at a time.
// Users and sessions are rolled back when fn fails.
type memTx struct {
	mu       sync.Mutex
	stores   Stores
	users    *memUserRepo
	sessions *memSessionRepo
	calls    int
}

func (t *memTx) InTx(ctx context.Context, fn func(Stores) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	users := t.users.snapshot()
	sessions := t.sessions.snapshot()
	if err := fn(t.stores); err != nil {
		t.users.restore(users)
		t.sessions.restore(sessions)
		return err
	}
	return nil
}
