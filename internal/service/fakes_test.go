package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/password"
	"github.com/dtroode/taskhub-server/internal/storage/memory"
	"github.com/dtroode/taskhub-server/internal/testutil"
	"github.com/dtroode/taskhub-server/internal/token"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uuid.UUID]model.User)}
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) && u.DeletedAt == nil {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.DeletedAt != nil {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, user model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return model.User{}, model.ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	user.DateJoined, user.UpdatedAt = now, now
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.ErrNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) HardDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) hashOf(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].PasswordHash
}

// fakeLedger keeps one row per user, like the unique user_id constraint.
type fakeLedger struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]model.RefreshToken
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{byUser: make(map[uuid.UUID]model.RefreshToken)}
}

func (f *fakeLedger) Issue(_ context.Context, userID uuid.UUID, tok string, expiresAt time.Time) (model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.byUser[userID]
	if !ok {
		row = model.RefreshToken{ID: uuid.New(), UserID: userID}
	}
	row.Token, row.ExpiresAt, row.CreatedAt, row.DeletedAt = tok, expiresAt, time.Now(), nil
	f.byUser[userID] = row
	return row, nil
}

func (f *fakeLedger) GetByToken(_ context.Context, tok string) (model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.byUser {
		if row.Token == tok && row.DeletedAt == nil {
			return row, nil
		}
	}
	return model.RefreshToken{}, model.ErrNotFound
}

func (f *fakeLedger) Rotate(_ context.Context, userID uuid.UUID, oldToken, newToken string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.byUser[userID]
	if !ok || row.Token != oldToken || row.DeletedAt != nil {
		return model.ErrNotFound
	}
	row.Token, row.ExpiresAt = newToken, expiresAt
	f.byUser[userID] = row
	return nil
}

func (f *fakeLedger) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for uid, row := range f.byUser {
		if row.ID == id && row.DeletedAt == nil {
			now := time.Now()
			row.DeletedAt = &now
			f.byUser[uid] = row
			return nil
		}
	}
	return model.ErrNotFound
}

func (f *fakeLedger) SoftDeleteByToken(_ context.Context, userID uuid.UUID, tok string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.byUser[userID]
	if !ok || row.Token != tok || row.DeletedAt != nil {
		return model.ErrNotFound
	}
	now := time.Now()
	row.DeletedAt = &now
	f.byUser[userID] = row
	return nil
}

func (f *fakeLedger) HardDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for uid, row := range f.byUser {
		if row.ID == id {
			delete(f.byUser, uid)
			return nil
		}
	}
	return model.ErrNotFound
}

func (f *fakeLedger) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for uid, row := range f.byUser {
		if row.ExpiresAt.Before(before) {
			delete(f.byUser, uid)
			n++
		}
	}
	return n, nil
}

// interleavingLedger runs afterLookup once, right after the next GetByToken
// returns, to model a write from another request landing between a read and
// the caller's own write.
type interleavingLedger struct {
	*fakeLedger

	mu          sync.Mutex
	afterLookup func()
}

func (l *interleavingLedger) interleave(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.afterLookup = fn
}

func (l *interleavingLedger) GetByToken(ctx context.Context, tok string) (model.RefreshToken, error) {
	row, err := l.fakeLedger.GetByToken(ctx, tok)

	l.mu.Lock()
	fn := l.afterLookup
	l.afterLookup = nil
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
	return row, err
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return m.err
}

func (m *recordingMailer) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type sessionHarness struct {
	auth   *Auth
	users  *fakeUsers
	ledger *fakeLedger
	race   *interleavingLedger
	cache  *memory.Cache
	codec  *token.JWT
	tokens *TokenService
	mailer *recordingMailer
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	return newSessionHarnessWithLogger(t, testutil.MakeNoopLogger())
}

func newSessionHarnessWithLogger(t *testing.T, log *logger.Logger) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		users:  newFakeUsers(),
		ledger: newFakeLedger(),
		cache:  memory.NewCache(),
		codec:  token.NewJWT("test-secret"),
		mailer: &recordingMailer{},
	}
	h.race = &interleavingLedger{fakeLedger: h.ledger}
	h.tokens = NewTokenService(h.codec, h.race, NewRevocation(h.cache, 30*time.Minute), 720*time.Hour, log)
	h.auth = NewAuth(h.users, fakeTx{}, password.NewBcrypt(bcrypt.MinCost), h.tokens, h.cache, h.mailer, 5*time.Minute, metrics.New(), log)
	return h
}

func (h *sessionHarness) register(t *testing.T, email, pass string, staff bool) model.User {
	t.Helper()
	hash, err := password.NewBcrypt(bcrypt.MinCost).Hash(pass)
	if err != nil {
		t.Fatal(err)
	}
	u, err := h.users.Create(context.Background(), model.User{ID: uuid.New(), Email: email, PasswordHash: hash, IsStaff: staff})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// gate runs the same liveness-then-signature check as the HTTP auth gate.
func (h *sessionHarness) gate(ctx context.Context, access string) (model.Identity, error) {
	live, err := h.tokens.revocation.IsLive(ctx, access)
	if err != nil {
		return model.Identity{}, err
	}
	if !live {
		return model.Identity{}, model.ErrTokenRevoked
	}
	claims, err := h.codec.ParseAccess(access)
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{UserID: claims.UserID, Elevated: claims.Elevated}, nil
}
