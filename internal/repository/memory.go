package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/storefront-auth/internal/model"
)

// MemoryAccounts is a process-local account store with the same
// uniqueness and version semantics as AccountRepo.
type MemoryAccounts struct {
	mu         sync.Mutex
	byID       map[string]*model.Account
	byEmail    map[string]string
	byUsername map[string]string
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		byID:       map[string]*model.Account{},
		byEmail:    map[string]string{},
		byUsername: map[string]string{},
	}
}

func (m *MemoryAccounts) Create(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := normalizeEmail(a.Email)
	if _, ok := m.byEmail[email]; ok {
		return ErrEmailExists
	}
	if _, ok := m.byUsername[a.Username]; ok {
		return ErrUsernameExists
	}
	now := time.Now().UTC()
	a.Email = email
	a.Version = 1
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	m.byID[a.ID] = &cp
	m.byEmail[email] = a.ID
	m.byUsername[a.Username] = a.ID
	return nil
}

func (m *MemoryAccounts) FindByEmail(ctx context.Context, email string) (model.Account, error) {
	a, err := m.FindByEmailWithOTP(ctx, email)
	return a.WithoutOTP(), err
}

func (m *MemoryAccounts) FindByEmailWithOTP(_ context.Context, email string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	return copyAccount(m.byID[id]), nil
}

func (m *MemoryAccounts) FindByUsername(_ context.Context, username string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byUsername[strings.TrimSpace(username)]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	return copyAccount(m.byID[id]).WithoutOTP(), nil
}

func (m *MemoryAccounts) FindByID(_ context.Context, id string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	return copyAccount(a).WithoutOTP(), nil
}

func (m *MemoryAccounts) Save(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[a.ID]
	if !ok || cur.Version != a.Version {
		return ErrStaleVersion
	}
	if a.Username != cur.Username {
		if _, taken := m.byUsername[a.Username]; taken {
			return ErrUsernameExists
		}
		delete(m.byUsername, cur.Username)
		m.byUsername[a.Username] = a.ID
	}
	next := copyAccount(a)
	next.Email = cur.Email
	next.Verified = cur.Verified || a.Verified
	next.CreatedAt = cur.CreatedAt
	next.Version = cur.Version + 1
	next.UpdatedAt = time.Now().UTC()
	m.byID[a.ID] = &next
	a.Version = next.Version
	a.UpdatedAt = next.UpdatedAt
	return nil
}

func (m *MemoryAccounts) setPassword(id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = hash
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryResets stores reset tokens next to a MemoryAccounts.
type MemoryResets struct {
	mu       sync.Mutex
	nextID   uint64
	byHash   map[string]*model.PasswordResetToken
	accounts *MemoryAccounts
}

func NewMemoryResets(accounts *MemoryAccounts) *MemoryResets {
	return &MemoryResets{byHash: map[string]*model.PasswordResetToken{}, accounts: accounts}
}

func (m *MemoryResets) Create(_ context.Context, t *model.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	m.byHash[t.TokenHash] = &cp
	return nil
}

func (m *MemoryResets) FindByHash(_ context.Context, tokenHash string) (model.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[tokenHash]
	if !ok {
		return model.PasswordResetToken{}, ErrNotFound
	}
	return *t, nil
}

func (m *MemoryResets) Redeem(_ context.Context, tokenHash string, now time.Time, passwordHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[tokenHash]
	if !ok {
		return "", ErrNotFound
	}
	if t.Consumed() {
		return "", ErrTokenConsumed
	}
	if t.ExpiredAt(now) {
		return "", ErrTokenExpired
	}
	if err := m.accounts.setPassword(t.AccountID, passwordHash); err != nil {
		return "", err
	}
	ts := now.UTC()
	t.ConsumedAt = &ts
	return t.AccountID, nil
}

func copyAccount(a *model.Account) model.Account {
	cp := *a
	if a.OTPExpiresAt != nil {
		exp := *a.OTPExpiresAt
		cp.OTPExpiresAt = &exp
	}
	return cp
}
