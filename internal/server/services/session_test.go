package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/crewgate/crewgate/internal/common"
	"github.com/crewgate/crewgate/internal/dbx"
	"github.com/crewgate/crewgate/internal/server/config"
	"github.com/crewgate/crewgate/internal/server/identity"
	"github.com/crewgate/crewgate/internal/server/models"
	refreshtokensrepo "github.com/crewgate/crewgate/internal/server/repositories/refreshtokens"
	servicesrepo "github.com/crewgate/crewgate/internal/server/repositories/services"
	usersrepo "github.com/crewgate/crewgate/internal/server/repositories/users"
	"github.com/crewgate/crewgate/internal/server/token"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newSessionService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *SessionService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 7 * 24 * time.Hour,
	}
	codec := token.NewCodec([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	return NewSessionService(db, rm, codec, cfg)
}

// fakeUsersRepo is a stateful in-memory users.Repository.
type fakeUsersRepo struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	calls struct {
		activate  int
		touch     int
		reReadNil bool // simulate vanished row on FindByID after Activate
	}
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range users {
		cp := *u
		f.byID[u.ID] = &cp
	}
	return f
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email && !u.IsDeleted {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls.reReadNil {
		return nil, common.ErrorNotFound
	}
	u, ok := f.byID[id]
	if !ok || u.IsDeleted {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.byID {
		if !u.IsDeleted {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsersRepo) Activate(ctx context.Context, id string, photo string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.activate++
	u, ok := f.byID[id]
	if !ok || u.IsDeleted || u.Status != models.StatusInvited {
		return 0, nil
	}
	u.Status = models.StatusActive
	u.Photo = photo
	u.LastLogin = sql.NullTime{Time: at, Valid: true}
	return 1, nil
}

func (f *fakeUsersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.touch++
	if u, ok := f.byID[id]; ok {
		u.LastLogin = sql.NullTime{Time: at, Valid: true}
	}
	return nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, id string, role *models.Role, status *models.Status) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.IsDeleted {
		return 0, nil
	}
	if role != nil {
		u.Role = *role
	}
	if status != nil {
		u.Status = *status
	}
	return 1, nil
}

func (f *fakeUsersRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.IsDeleted {
		return false, nil
	}
	u.IsDeleted = true
	return true, nil
}

func (f *fakeUsersRepo) CountByEmail(ctx context.Context, email string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.byID {
		if u.Email == email && !u.IsDeleted {
			n++
		}
	}
	return n, nil
}

// fakeRefreshRepo is a stateful in-memory refreshtokens.Repository keyed by
// digest. Revoke is atomic under the mutex, mirroring the conditional UPDATE.
type fakeRefreshRepo struct {
	mu     sync.Mutex
	byHash map[string]*models.RefreshToken

	createErr error
}

func newFakeRefreshRepo(rows ...*models.RefreshToken) *fakeRefreshRepo {
	f := &fakeRefreshRepo{byHash: map[string]*models.RefreshToken{}}
	for _, r := range rows {
		cp := *r
		f.byHash[r.TokenHash] = &cp
	}
	return f
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byHash[tokenHash] = &models.RefreshToken{
		UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeRefreshRepo) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byHash[tokenHash]
	if !ok || r.IsRevoked {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRefreshRepo) Revoke(ctx context.Context, tokenHash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byHash[tokenHash]
	if !ok || r.IsRevoked {
		return 0, nil
	}
	r.IsRevoked = true
	return 1, nil
}

func (f *fakeRefreshRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byHash {
		if r.UserID == userID {
			r.IsRevoked = true
		}
	}
	return nil
}

func (f *fakeRefreshRepo) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.byHash {
		if !r.IsRevoked {
			n++
		}
	}
	return n
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	s servicesrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return m.r
}
func (m *fakeRepoManager) Services(db dbx.DBTX) servicesrepo.Repository { return m.s }

func invitedViewer() *models.User {
	return &models.User{
		ID:     "u1",
		Email:  "a@x.com",
		Role:   models.RoleViewer,
		Status: models.StatusInvited,
	}
}

// --- Login ---

func TestLogin_InvitedBecomesActive(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(invitedViewer()), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)

	pair, err := s.Login(context.Background(), identity.Profile{Email: "a@x.com", Picture: "https://pic"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens in response")
	}

	u := rm.u.byID["u1"]
	if u.Status != models.StatusActive {
		t.Fatalf("want ACTIVE, got %s", u.Status)
	}
	if u.Photo != "https://pic" {
		t.Fatalf("photo not captured: %q", u.Photo)
	}
	if rm.r.liveCount() != 1 {
		t.Fatalf("want exactly one live refresh row, got %d", rm.r.liveCount())
	}
}

func TestLogin_SecondLoginOnlyTouchesLastLogin(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(invitedViewer()), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)

	if _, err := s.Login(context.Background(), identity.Profile{Email: "a@x.com"}); err != nil {
		t.Fatalf("first Login error: %v", err)
	}
	if _, err := s.Login(context.Background(), identity.Profile{Email: "A@X.com"}); err != nil {
		t.Fatalf("second Login error: %v", err)
	}

	if rm.u.calls.activate != 1 {
		t.Fatalf("Activate must run exactly once, ran %d times", rm.u.calls.activate)
	}
	if rm.u.calls.touch != 1 {
		t.Fatalf("TouchLastLogin must run exactly once, ran %d times", rm.u.calls.touch)
	}
	if rm.u.byID["u1"].Status != models.StatusActive {
		t.Fatal("status must remain ACTIVE")
	}
}

func TestLogin_MissingEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)

	_, err := s.Login(context.Background(), identity.Profile{Email: "   "})
	if !errors.Is(err, common.ErrIdentityIncomplete) {
		t.Fatalf("want ErrIdentityIncomplete, got %v", err)
	}
}

func TestLogin_UnknownEmailIsNotInvited(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)

	_, err := s.Login(context.Background(), identity.Profile{Email: "nobody@x.com"})
	if !errors.Is(err, common.ErrNotInvited) {
		t.Fatalf("want ErrNotInvited, got %v", err)
	}
}

func TestLogin_DeletedUserIsNotInvited(t *testing.T) {
	db, _ := newSQLMockDB(t)
	deleted := invitedViewer()
	deleted.IsDeleted = true
	rm := &fakeRepoManager{u: newFakeUsersRepo(deleted), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)

	_, err := s.Login(context.Background(), identity.Profile{Email: "a@x.com"})
	if !errors.Is(err, common.ErrNotInvited) {
		t.Fatalf("want ErrNotInvited, got %v", err)
	}
}

func TestLogin_ReReadVanishedIsInconsistentState(t *testing.T) {
	db, _ := newSQLMockDB(t)
	u := newFakeUsersRepo(invitedViewer())
	u.calls.reReadNil = true
	rm := &fakeRepoManager{u: u, r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)

	_, err := s.Login(context.Background(), identity.Profile{Email: "a@x.com"})
	if !errors.Is(err, common.ErrInconsistentState) {
		t.Fatalf("want ErrInconsistentState, got %v", err)
	}
}

// --- Refresh ---

func seedToken(t *testing.T, rm *fakeRepoManager, userID string, ttl time.Duration) string {
	t.Helper()
	secret, err := token.GenerateRefreshSecret()
	if err != nil {
		t.Fatalf("GenerateRefreshSecret error: %v", err)
	}
	err = rm.r.Create(context.Background(), userID, token.HashSecret(secret), time.Now().Add(ttl))
	if err != nil {
		t.Fatalf("seed token error: %v", err)
	}
	return secret
}

func activeUser() *models.User {
	u := invitedViewer()
	u.Status = models.StatusActive
	return u
}

func TestRefresh_RotatesToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{u: newFakeUsersRepo(activeUser()), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)
	secret := seedToken(t, rm, "u1", time.Hour)

	pair, err := s.Refresh(context.Background(), secret)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a fresh token pair")
	}
	if pair.RefreshToken == secret {
		t.Fatal("refresh secret must rotate")
	}

	// old row revoked, exactly one live row remains
	if old := rm.r.byHash[token.HashSecret(secret)]; !old.IsRevoked {
		t.Fatal("old token must be revoked")
	}
	if rm.r.liveCount() != 1 {
		t.Fatalf("want exactly one live refresh row, got %d", rm.r.liveCount())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefresh_ReplayFails(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{u: newFakeUsersRepo(activeUser()), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)
	secret := seedToken(t, rm, "u1", time.Hour)

	if _, err := s.Refresh(context.Background(), secret); err != nil {
		t.Fatalf("first Refresh error: %v", err)
	}
	_, err := s.Refresh(context.Background(), secret)
	if !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Fatalf("replay must fail with ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestRefresh_UnknownSecret(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(activeUser()), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)

	_, err := s.Refresh(context.Background(), "never-issued")
	if !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Fatalf("want ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestRefresh_ExpiredTokenUnusable(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(activeUser()), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)
	secret := seedToken(t, rm, "u1", -time.Minute)

	_, err := s.Refresh(context.Background(), secret)
	if !errors.Is(err, common.ErrInvalidOrExpiredToken) {
		t.Fatalf("want ErrInvalidOrExpiredToken for expired token, got %v", err)
	}
	// the row was not consumed, it is simply unusable
	if rm.r.byHash[token.HashSecret(secret)].IsRevoked {
		t.Fatal("expired token must not be flipped by a failed refresh")
	}
}

func TestRefresh_DanglingOwner(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)
	secret := seedToken(t, rm, "ghost", time.Hour)

	_, err := s.Refresh(context.Background(), secret)
	if !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestRefresh_ConcurrentCallersOneWinner(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.MatchExpectationsInOrder(false)
	// both callers pass the read phase; one commits, the loser rolls back
	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: newFakeUsersRepo(activeUser()), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)
	secret := seedToken(t, rm, "u1", time.Hour)

	type result struct {
		pair *TokenPair
		err  error
	}
	results := make(chan result, 2)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < 2; i++ {
		go func() {
			start.Wait()
			pair, err := s.Refresh(context.Background(), secret)
			results <- result{pair, err}
		}()
	}
	start.Done()

	var wins, losses int
	for i := 0; i < 2; i++ {
		res := <-results
		switch {
		case res.err == nil && res.pair != nil:
			wins++
		case errors.Is(res.err, common.ErrInvalidOrExpiredToken):
			losses++
		default:
			t.Fatalf("unexpected result: pair=%v err=%v", res.pair, res.err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("want exactly one winner and one loser, got %d/%d", wins, losses)
	}
	if rm.r.liveCount() != 1 {
		t.Fatalf("want exactly one live refresh row after the race, got %d", rm.r.liveCount())
	}
}

// --- Logout ---

func TestLogout_RevokesAndIsIdempotent(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(activeUser()), r: newFakeRefreshRepo()}
	s := newSessionService(t, db, rm)
	secret := seedToken(t, rm, "u1", time.Hour)

	if err := s.Logout(context.Background(), secret); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if !rm.r.byHash[token.HashSecret(secret)].IsRevoked {
		t.Fatal("token must be revoked after logout")
	}

	// second logout and logout of an unknown secret are both fine
	if err := s.Logout(context.Background(), secret); err != nil {
		t.Fatalf("repeated Logout error: %v", err)
	}
	if err := s.Logout(context.Background(), "never-issued"); err != nil {
		t.Fatalf("Logout of unknown secret error: %v", err)
	}
}
