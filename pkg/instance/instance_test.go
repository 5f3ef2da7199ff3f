package instance

import (
	"testing"

	"github.com/siodb/siodb/pkg/types"
)

func testOptions(t *testing.T) Options {
	return Options{
		Name:    "inst1",
		DataDir: t.TempDir(),
	}
}

func TestOpenBootstrapsSuperUser(t *testing.T) {
	inst, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	rec, err := inst.FindUserByID(types.SuperUserID)
	if err != nil {
		t.Fatalf("FindUserByID: %v", err)
	}
	if rec.Name != "root" || !rec.Active {
		t.Fatalf("unexpected super-user record: %+v", rec)
	}
}

func TestOpenBootstrapsSuperUserInitialAccessKey(t *testing.T) {
	opts := testOptions(t)
	opts.SuperUserInitialAccessKey = "ssh-rsa AAAA..."
	inst, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	key, ok := inst.sys.AccessKeys.Get(types.SuperUserInitialAccessKeyID)
	if !ok {
		t.Fatal("expected the super-user's initial access key to be recorded")
	}
	if key.UserID != types.SuperUserID || key.Text != opts.SuperUserInitialAccessKey {
		t.Fatalf("unexpected access key record: %+v", key)
	}
}

func TestOpenReopenPreservesSuperUser(t *testing.T) {
	opts := testOptions(t)

	first, err := Open(opts)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	first.Close()

	second, err := Open(opts)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()

	if _, err := second.FindUserByID(types.SuperUserID); err != nil {
		t.Fatalf("expected the super-user to survive a reopen: %v", err)
	}
}

func TestOpenRejectsInstanceNameMismatch(t *testing.T) {
	opts := testOptions(t)
	first, err := Open(opts)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	first.Close()

	opts.Name = "inst2"
	if _, err := Open(opts); err == nil {
		t.Fatal("expected a name mismatch against the init flag file to fail")
	}
}

func TestSessionLifecycle(t *testing.T) {
	inst, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	id := inst.BeginSession(types.SuperUserID)
	userID, ok := inst.Session(id)
	if !ok || userID != types.SuperUserID {
		t.Fatalf("expected session %s to resolve to the super-user, got %v (ok=%v)", id, userID, ok)
	}

	if err := inst.EndSession(id); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, ok := inst.Session(id); ok {
		t.Fatal("expected the session to be gone after EndSession")
	}
	if err := inst.EndSession(id); err == nil {
		t.Fatal("expected ending an already-closed session to fail")
	}
}
