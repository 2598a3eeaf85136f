package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oculab/growthtrack/internal/domain"
	"github.com/oculab/growthtrack/internal/repository/file"
	"github.com/oculab/growthtrack/internal/session"
	"github.com/oculab/growthtrack/internal/storage"
)

// testEnv wires real filesystem-backed services over a temp users root,
// the way main assembles them.
type testEnv struct {
	layout   *storage.Layout
	auth     *AuthService
	sessions *SessionService
	data     *DataService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	layout, err := storage.NewLayout(filepath.Join(t.TempDir(), "users"))
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}

	repo := file.NewUserRepository(layout, zerolog.Nop())
	store := session.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	return &testEnv{
		layout:   layout,
		auth:     NewAuthService(repo, nil, zerolog.Nop()),
		sessions: NewSessionService(store, layout, time.Hour, zerolog.Nop()),
		data:     NewDataService(layout, repo, zerolog.Nop()),
	}
}

func (e *testEnv) registerAndLogin(t *testing.T, username, email string, sharing bool) *session.Session {
	t.Helper()
	ctx := context.Background()

	in := registerInput(username, email)
	in.DataSharing = sharing
	user, err := e.auth.Register(ctx, in)
	if err != nil {
		t.Fatalf("Register %s: %v", username, err)
	}

	sess, err := e.sessions.Login(ctx, user)
	if err != nil {
		t.Fatalf("Login %s: %v", username, err)
	}
	return sess
}

func TestLoginCreatesDataDir(t *testing.T) {
	env := newTestEnv(t)

	sess := env.registerAndLogin(t, "alice", "alice@example.com", false)

	info, err := os.Stat(sess.DataDir)
	if err != nil {
		t.Fatalf("stat data dir: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("resolved data dir is not a directory")
	}
	if sess.User.Password != "" {
		t.Error("session user carries a password")
	}
}

func TestPersonalDirsAreDistinct(t *testing.T) {
	env := newTestEnv(t)

	alice := env.registerAndLogin(t, "alice", "alice@example.com", false)
	bob := env.registerAndLogin(t, "bob", "bob@example.com", false)

	if alice.DataDir == bob.DataDir {
		t.Error("two non-sharing users resolved to the same data directory")
	}
}

func TestInstitutionalSharingScenario(t *testing.T) {
	// Two sharing users of the same institution share one directory: a file
	// saved in alice's session is loadable from bob's.
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.registerAndLogin(t, "alice", "alice@example.com", true)
	bob := env.registerAndLogin(t, "bob", "bob@example.com", true)

	if alice.DataDir != bob.DataDir {
		t.Fatalf("sharing users resolved to different dirs: %q vs %q", alice.DataDir, bob.DataDir)
	}

	note := map[string]string{"note": "axial length stable"}
	if err := env.data.Save(ctx, alice, "note.json", note); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := env.data.Load(ctx, bob, "note.json")
	if err != nil {
		t.Fatalf("Load from bob's session: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal loaded data: %v", err)
	}
	if got["note"] != "axial length stable" {
		t.Errorf("loaded %v, want the note alice saved", got)
	}

	users, err := env.data.ListInstitutionUsers(ctx, "General Hospital")
	if err != nil {
		t.Fatalf("ListInstitutionUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("ListInstitutionUsers returned %d users, want 2", len(users))
	}
	for _, u := range users {
		if u.Password != "" {
			t.Errorf("institution listing leaked a password for %s", u.Username)
		}
	}
}

func TestDataOpsRequireSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.data.Save(ctx, nil, "note.json", "x"); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("Save without session: err = %v, want ErrNoSession", err)
	}
	if _, err := env.data.Load(ctx, nil, "note.json"); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("Load without session: err = %v, want ErrNoSession", err)
	}
}

func TestLoadAbsentAndMalformed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.registerAndLogin(t, "alice", "alice@example.com", false)

	if _, err := env.data.Load(ctx, sess, "missing.json"); !errors.Is(err, domain.ErrDataNotFound) {
		t.Errorf("Load absent: err = %v, want ErrDataNotFound", err)
	}

	path := filepath.Join(sess.DataDir, "corrupt.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := env.data.Load(ctx, sess, "corrupt.json"); !errors.Is(err, domain.ErrMalformedData) {
		t.Errorf("Load corrupt: err = %v, want ErrMalformedData", err)
	}
}

func TestSaveRejectsEscapingFilenames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.registerAndLogin(t, "alice", "alice@example.com", false)

	for _, name := range []string{"", ".", "..", "../outside.json", `a\b`} {
		if err := env.data.Save(ctx, sess, name, "x"); !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("Save(%q): err = %v, want ErrInvalidFilename", name, err)
		}
	}
}

func TestSaveOverwrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.registerAndLogin(t, "alice", "alice@example.com", false)

	if err := env.data.Save(ctx, sess, "note.json", "first"); err != nil {
		t.Fatal(err)
	}
	if err := env.data.Save(ctx, sess, "note.json", "second"); err != nil {
		t.Fatal(err)
	}

	raw, err := env.data.Load(ctx, sess, "note.json")
	if err != nil {
		t.Fatal(err)
	}
	var got string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got != "second" {
		t.Errorf("loaded %q, want the overwritten value", got)
	}
}

func TestListInstitutionPatientIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Missing institution dir yields an empty list.
	ids, err := env.data.ListInstitutionPatientIDs(ctx, "Nowhere Clinic")
	if err != nil {
		t.Fatalf("ListInstitutionPatientIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want empty", ids)
	}

	dir := env.layout.InstitutionDataDir("General Hospital")
	for _, patient := range []string{"p-002", "p-001", "p-010"} {
		if err := storage.EnsureDir(filepath.Join(dir, patient)); err != nil {
			t.Fatal(err)
		}
	}
	// Plain files in the institution dir are not patient IDs.
	if err := os.WriteFile(filepath.Join(dir, "note.json"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	ids, err = env.data.ListInstitutionPatientIDs(ctx, "General Hospital")
	if err != nil {
		t.Fatalf("ListInstitutionPatientIDs: %v", err)
	}
	want := []string{"p-001", "p-002", "p-010"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v (sorted)", ids, want)
		}
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.registerAndLogin(t, "alice", "alice@example.com", false)

	if !env.sessions.IsLoggedIn(ctx, sess.Token) {
		t.Fatal("freshly logged-in token reports not logged in")
	}
	if err := env.sessions.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if env.sessions.IsLoggedIn(ctx, sess.Token) {
		t.Error("token still logged in after logout")
	}
	if _, err := env.sessions.Current(ctx, sess.Token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Current after logout: err = %v, want ErrSessionNotFound", err)
	}
}

func TestDemoLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	demo := env.auth.DemoUser()
	sess, err := env.sessions.Login(ctx, demo)
	if err != nil {
		t.Fatalf("Login demo: %v", err)
	}

	if sess.UserID != storage.DemoUserID {
		t.Errorf("demo session user_id = %q, want %q", sess.UserID, storage.DemoUserID)
	}
	if sess.DataDir != env.layout.DemoDataDir() {
		t.Errorf("demo data dir = %q, want %q", sess.DataDir, env.layout.DemoDataDir())
	}
	if _, err := os.Stat(sess.DataDir); err != nil {
		t.Errorf("demo data dir not created: %v", err)
	}
	// The demo user is never persisted as a record file.
	if _, err := os.Stat(env.layout.UserFile("demo_user")); !os.IsNotExist(err) {
		t.Error("demo login persisted a user record")
	}
}
