package api_test

import (
	"context"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/daybook/app/api"
	"github.com/dmitrymomot/daybook/core/email"
	"github.com/dmitrymomot/daybook/core/logger"
	"github.com/dmitrymomot/daybook/core/permission"
	"github.com/dmitrymomot/daybook/core/router"
	"github.com/dmitrymomot/daybook/core/session"
	"github.com/dmitrymomot/daybook/core/totp"
	"github.com/dmitrymomot/daybook/core/user"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*user.User)}
}

func (s *memUserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return user.ErrUsernameTaken
		}
		if u.Email != "" && existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUserStore) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (s *memUserStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *memUserStore) SetEmailVerified(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.EmailVerified = true
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*session.Session)}
}

func (s *memSessionStore) Insert(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.Token]; ok {
		return session.ErrTokenExists
	}
	cp := *sess
	s.sessions[sess.Token] = &cp
	return nil
}

func (s *memSessionStore) Find(_ context.Context, token string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *memSessionStore) MarkVerified(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return session.ErrSessionNotFound
	}
	sess.Verified = true
	return nil
}

func (s *memSessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return session.ErrSessionNotFound
	}
	delete(s.sessions, token)
	return nil
}

func (s *memSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, sess := range s.sessions {
		if sess.Dropped || !now.Before(sess.Expires) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

type memOtpStore struct {
	mu          sync.Mutex
	byUser      map[uuid.UUID]*totp.Enrollment
	backupCodes map[uuid.UUID]map[string]bool
}

func newMemOtpStore() *memOtpStore {
	return &memOtpStore{
		byUser:      make(map[uuid.UUID]*totp.Enrollment),
		backupCodes: make(map[uuid.UUID]map[string]bool),
	}
}

func (s *memOtpStore) FindByUser(_ context.Context, userID uuid.UUID) (*totp.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byUser[userID]
	if !ok {
		return nil, totp.ErrTotpNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memOtpStore) Upsert(_ context.Context, e *totp.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.byUser[e.UserID] = &cp
	return nil
}

func (s *memOtpStore) MarkVerified(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.byUser {
		if e.ID == id {
			e.Verified = true
			return nil
		}
	}
	return totp.ErrTotpNotFound
}

func (s *memOtpStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byUser[userID]
	if !ok {
		return totp.ErrTotpNotFound
	}
	delete(s.backupCodes, e.ID)
	delete(s.byUser, userID)
	return nil
}

func (s *memOtpStore) InsertBackupCodes(_ context.Context, enrollmentID uuid.UUID, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = false
	}
	s.backupCodes[enrollmentID] = m
	return nil
}

func (s *memOtpStore) ConsumeBackupCode(_ context.Context, enrollmentID uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.backupCodes[enrollmentID]
	used, ok := m[code]
	if !ok || used {
		return totp.ErrTotpHashInvalid
	}
	m[code] = true
	return nil
}

// settingsFor exposes the stored enrollment so tests can compute codes.
func (s *memOtpStore) settingsFor(userID uuid.UUID) totp.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byUser[userID].Settings
}

// memPermStore mirrors the relational permission model: tuple-unique
// rows, membership joins, group cascades. The user set is shared with
// memUserStore through the lookup func.
type memPermStore struct {
	mu          sync.Mutex
	userExists  func(id uuid.UUID) bool
	groups      map[uuid.UUID]string
	members     map[uuid.UUID][]uuid.UUID
	permissions map[uuid.UUID]permission.Permission
}

func newMemPermStore(userExists func(id uuid.UUID) bool) *memPermStore {
	return &memPermStore{
		userExists:  userExists,
		groups:      make(map[uuid.UUID]string),
		members:     make(map[uuid.UUID][]uuid.UUID),
		permissions: make(map[uuid.UUID]permission.Permission),
	}
}

// grant seeds a permission row directly, bypassing the engine.
func (s *memPermStore) grant(p permission.Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.permissions[p.ID] = p
}

func (s *memPermStore) GroupsOf(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for groupID, users := range s.members {
		if slices.Contains(users, userID) {
			out = append(out, groupID)
		}
	}
	return out, nil
}

func sameTuple(a, b permission.Permission) bool {
	if a.SubjectTable != b.SubjectTable || a.SubjectID != b.SubjectID ||
		a.Roll != b.Roll || a.Ability != b.Ability || a.ResourceTable != b.ResourceTable {
		return false
	}
	if (a.ResourceID == nil) != (b.ResourceID == nil) {
		return false
	}
	return a.ResourceID == nil || *a.ResourceID == *b.ResourceID
}

func (s *memPermStore) ExistsGrant(_ context.Context, f permission.GrantFilter) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.permissions {
		if p.Roll != f.Roll || !slices.Contains(f.Abilities, p.Ability) {
			continue
		}
		subjectMatch := (p.SubjectTable == permission.SubjectUsers && p.SubjectID == f.UserSubject) ||
			(p.SubjectTable == permission.SubjectGroups && slices.Contains(f.GroupSubjects, p.SubjectID))
		if !subjectMatch {
			continue
		}
		if !f.HasResource {
			if p.ResourceTable == permission.ResourceNone {
				return true, nil
			}
			continue
		}
		if p.ResourceID == nil {
			continue
		}
		if p.ResourceTable == permission.ResourceUsers && *p.ResourceID == f.ResourceUser {
			return true, nil
		}
		if p.ResourceTable == permission.ResourceGroups && slices.Contains(f.ResourceGroups, *p.ResourceID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memPermStore) FindBySubject(_ context.Context, table permission.SubjectTable, subjectID uuid.UUID) ([]permission.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []permission.Permission
	for _, p := range s.permissions {
		if p.SubjectTable == table && p.SubjectID == subjectID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memPermStore) Upsert(_ context.Context, p *permission.Permission) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.permissions {
		if sameTuple(existing, *p) {
			return id, nil
		}
	}
	s.permissions[p.ID] = *p
	return p.ID, nil
}

func (s *memPermStore) DeleteBySubjectExcept(_ context.Context, table permission.SubjectTable, subjectID uuid.UUID, keep []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.permissions {
		if p.SubjectTable == table && p.SubjectID == subjectID && !slices.Contains(keep, id) {
			delete(s.permissions, id)
		}
	}
	return nil
}

func (s *memPermStore) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	return s.userExists(id), nil
}

func (s *memPermStore) GroupExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[id]
	return ok, nil
}

func (s *memPermStore) CreateGroup(_ context.Context, g *permission.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.groups {
		if name == g.Name {
			return permission.ErrGroupNameTaken
		}
	}
	s.groups[g.ID] = g.Name
	return nil
}

func (s *memPermStore) DeleteGroup(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return permission.ErrGroupNotFound
	}
	delete(s.groups, id)
	delete(s.members, id)
	for pid, p := range s.permissions {
		subject := p.SubjectTable == permission.SubjectGroups && p.SubjectID == id
		resource := p.ResourceTable == permission.ResourceGroups && p.ResourceID != nil && *p.ResourceID == id
		if subject || resource {
			delete(s.permissions, pid)
		}
	}
	return nil
}

func (s *memPermStore) ListGroups(_ context.Context) ([]permission.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]permission.Group, 0, len(s.groups))
	for id, name := range s.groups {
		out = append(out, permission.Group{ID: id, Name: name})
	}
	return out, nil
}

func (s *memPermStore) GroupMembers(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.members[groupID]), nil
}

func (s *memPermStore) SetGroupMembers(_ context.Context, groupID uuid.UUID, userIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[groupID] = slices.Clone(userIDs)
	return nil
}

type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeMailer records outgoing mail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
}

func (m *fakeMailer) SendEmail(_ context.Context, params email.SendEmailParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, params)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fixture wires the full route table onto in-memory stores with a
// swappable clock.
type fixture struct {
	router   router.Router[*api.Context]
	users    *memUserStore
	sessions *memSessionStore
	otp      *memOtpStore
	perms    *memPermStore
	mailer   *fakeMailer
	tokens   *user.VerificationTokens
	clock    *time.Time
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	state, err := session.NewSecurityState(testSecret, "", "example.com")
	require.NoError(t, err)

	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		users:    newMemUserStore(),
		sessions: newMemSessionStore(),
		otp:      newMemOtpStore(),
		mailer:   &fakeMailer{},
		tokens:   user.NewVerificationTokens([]byte(testSecret), time.Hour),
		clock:    &now,
	}
	f.perms = newMemPermStore(func(id uuid.UUID) bool {
		_, err := f.users.FindByID(context.Background(), id)
		return err == nil
	})

	clockFn := func() time.Time { return *f.clock }
	engine := totp.NewEngine(f.otp, passTx{}, totp.WithClock(clockFn))
	mgr := session.NewManager(state, f.sessions, f.users, engine, passTx{},
		session.WithClock(clockFn))

	log := logger.New(logger.WithOutput(io.Discard))

	f.router = api.New(api.Deps{
		Logger:      log,
		Users:       user.NewService(f.users),
		UserStore:   f.users,
		Sessions:    mgr,
		Totp:        engine,
		Permissions: permission.NewEngine(f.perms, passTx{}),
		Mailer:      f.mailer,
		Tokens:      f.tokens,
		AppName:     "daybook-test",
		BaseURL:     "http://daybook.test",
	})
	return f
}
