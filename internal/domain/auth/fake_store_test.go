package auth

import (
	"context"
	"sync"
	"time"
)

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]Credentials
	emails   map[string]string
	resets   map[string]resetRow
	tokens   map[string]RefreshToken
	byHash   map[string]string
}

type resetRow struct {
	subjectID string
	role      string
	expires   time.Time
	used      bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[string]Credentials{},
		emails:   map[string]string{},
		resets:   map[string]resetRow{},
		tokens:   map[string]RefreshToken{},
		byHash:   map[string]string{},
	}
}

func (f *fakeStore) addAccount(role, id, email, password, status string) Credentials {
	hash, err := HashPassword(password)
	if err != nil {
		panic(err)
	}
	creds := Credentials{ID: id, Role: role, PasswordHash: hash, Status: status}
	f.accounts[role+":"+id] = creds
	f.emails[role+":"+email] = id
	return creds
}

func (f *fakeStore) FindCredentials(_ context.Context, role, email string) (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.emails[role+":"+email]
	if !ok {
		return Credentials{}, ErrNotFound
	}
	return f.accounts[role+":"+id], nil
}

func (f *fakeStore) CredentialsByID(_ context.Context, role, id string) (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds, ok := f.accounts[role+":"+id]
	if !ok {
		return Credentials{}, ErrNotFound
	}
	return creds, nil
}

func (f *fakeStore) UpdateLastLogin(context.Context, string, string) error { return nil }

func (f *fakeStore) UpdatePassword(_ context.Context, role, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds := f.accounts[role+":"+id]
	creds.PasswordHash = hash
	f.accounts[role+":"+id] = creds
	return nil
}

func (f *fakeStore) CreatePasswordReset(_ context.Context, subjectID, role, tokenHash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[tokenHash] = resetRow{subjectID: subjectID, role: role, expires: expires}
	return nil
}

func (f *fakeStore) ConsumePasswordReset(_ context.Context, tokenHash string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.resets[tokenHash]
	if !ok || row.used || time.Now().After(row.expires) {
		return "", "", ErrInvalidResetToken
	}
	row.used = true
	f.resets[tokenHash] = row
	return row.subjectID, row.role, nil
}

func (f *fakeStore) UpdateMFASecret(_ context.Context, adminID string, secretEnc []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds := f.accounts[RoleAdmin+":"+adminID]
	creds.MFASecretEnc = secretEnc
	creds.MFAEnabled = false
	f.accounts[RoleAdmin+":"+adminID] = creds
	return nil
}

func (f *fakeStore) MFASecret(_ context.Context, adminID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds, ok := f.accounts[RoleAdmin+":"+adminID]
	if !ok {
		return nil, ErrNotFound
	}
	return creds.MFASecretEnc, nil
}

func (f *fakeStore) SetMFAEnabled(_ context.Context, adminID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds := f.accounts[RoleAdmin+":"+adminID]
	creds.MFAEnabled = enabled
	f.accounts[RoleAdmin+":"+adminID] = creds
	return nil
}

func (f *fakeStore) CreateRefreshToken(_ context.Context, token RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token.ID] = token
	f.byHash[token.TokenHash] = token.ID
	return nil
}

func (f *fakeStore) RefreshTokenByHash(_ context.Context, tokenHash string) (RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byHash[tokenHash]
	if !ok {
		return RefreshToken{}, ErrInvalidRefreshToken
	}
	return f.tokens[id], nil
}

func (f *fakeStore) RotateRefreshToken(_ context.Context, oldID string, next RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old := f.tokens[oldID]
	if old.RevokedAt != nil {
		return ErrRefreshTokenReused
	}
	now := time.Now()
	old.RevokedAt = &now
	old.ReplacedBy = next.ID
	f.tokens[oldID] = old
	f.tokens[next.ID] = next
	f.byHash[next.TokenHash] = next.ID
	return nil
}

func (f *fakeStore) RevokeRefreshToken(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[id]
	if ok && token.RevokedAt == nil {
		now := time.Now()
		token.RevokedAt = &now
		f.tokens[id] = token
	}
	return nil
}

func (f *fakeStore) RevokeFamily(_ context.Context, familyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for id, token := range f.tokens {
		if token.FamilyID == familyID && token.RevokedAt == nil {
			token.RevokedAt = &now
			f.tokens[id] = token
		}
	}
	return nil
}

func (f *fakeStore) RevokeSubjectTokens(_ context.Context, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for id, token := range f.tokens {
		if token.SubjectID == subjectID && token.RevokedAt == nil {
			token.RevokedAt = &now
			f.tokens[id] = token
		}
	}
	return nil
}

func (f *fakeStore) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, token := range f.tokens {
		if token.ExpiresAt.Before(before) {
			delete(f.tokens, id)
			delete(f.byHash, token.TokenHash)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) activeTokens(subjectID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, token := range f.tokens {
		if token.SubjectID == subjectID && token.RevokedAt == nil {
			count++
		}
	}
	return count
}
