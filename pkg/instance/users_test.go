package instance

import (
	"testing"

	"github.com/siodb/siodb/pkg/types"
)

func TestAddDropUserAccessKey(t *testing.T) {
	opts := testOptions(t)
	opts.SuperUserInitialAccessKey = "ssh-rsa AAAA..."
	inst, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	rec, err := inst.AddUserAccessKey(types.SuperUserID, "second", "ssh-rsa BBBB...", nil)
	if err != nil {
		t.Fatalf("AddUserAccessKey: %v", err)
	}
	if !rec.Active {
		t.Fatal("expected a newly added access key to be active")
	}

	if _, err := inst.AddUserAccessKey(types.SuperUserID, "second", "ssh-rsa CCCC...", nil); err == nil {
		t.Fatal("expected a duplicate access key name to be rejected")
	}

	if err := inst.DropUserAccessKey(types.SuperUserID, "second", false); err != nil {
		t.Fatalf("DropUserAccessKey: %v", err)
	}
	if _, ok := inst.sys.AccessKeys.FindByUserAndName(types.SuperUserID, "second"); ok {
		t.Fatal("expected the dropped access key to be gone")
	}
}

func TestDropLastActiveAccessKeyRequiresForce(t *testing.T) {
	opts := testOptions(t)
	opts.SuperUserInitialAccessKey = "ssh-rsa AAAA..."
	inst, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	if err := inst.DropUserAccessKey(types.SuperUserID, "initial_key", false); err == nil {
		t.Fatal("expected dropping the super-user's last active key to be rejected without force")
	}
	if err := inst.DropUserAccessKey(types.SuperUserID, "initial_key", true); err != nil {
		t.Fatalf("DropUserAccessKey with force: %v", err)
	}
}

func TestDeactivateLastActiveAccessKeyRequiresForce(t *testing.T) {
	opts := testOptions(t)
	opts.SuperUserInitialAccessKey = "ssh-rsa AAAA..."
	inst, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	if err := inst.SetUserAccessKeyActive(types.SuperUserID, "initial_key", false, false); err == nil {
		t.Fatal("expected deactivating the last active key to be rejected without force")
	}
	if err := inst.SetUserAccessKeyActive(types.SuperUserID, "initial_key", false, true); err != nil {
		t.Fatalf("SetUserAccessKeyActive with force: %v", err)
	}
	key, ok := inst.sys.AccessKeys.FindByUserAndName(types.SuperUserID, "initial_key")
	if !ok || key.Active {
		t.Fatalf("expected the key to be recorded inactive, got %+v (ok=%v)", key, ok)
	}
}

func TestAddDropUserToken(t *testing.T) {
	opts := testOptions(t)
	opts.SuperUserInitialAccessKey = "ssh-rsa AAAA..."
	inst, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	rec, err := inst.AddUserToken(types.SuperUserID, "cli", "s3cr3t-raw-token", nil, nil)
	if err != nil {
		t.Fatalf("AddUserToken: %v", err)
	}
	if string(rec.Value) == "s3cr3t-raw-token" {
		t.Fatal("expected the raw token to never be stored as-is")
	}

	if err := inst.DropUserToken(types.SuperUserID, "cli", false); err != nil {
		t.Fatalf("DropUserToken: %v", err)
	}
	if _, ok := inst.sys.Tokens.FindByUserAndName(types.SuperUserID, "cli"); ok {
		t.Fatal("expected the dropped token to be gone")
	}
}

func TestDropLastActiveTokenRequiresForceWhenNoAccessKeys(t *testing.T) {
	inst, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	if _, err := inst.AddUserToken(types.SuperUserID, "only", "s3cr3t", nil, nil); err != nil {
		t.Fatalf("AddUserToken: %v", err)
	}

	if err := inst.DropUserToken(types.SuperUserID, "only", false); err == nil {
		t.Fatal("expected dropping the super-user's only credential to be rejected without force")
	}
	if err := inst.DropUserToken(types.SuperUserID, "only", true); err != nil {
		t.Fatalf("DropUserToken with force: %v", err)
	}
}
