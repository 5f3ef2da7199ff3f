package dberr

import (
	"errors"
	"testing"
)

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeCatalogLookupFailed, cause, "writing block %d", 7)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
	if err.Code != CodeCatalogLookupFailed {
		t.Fatalf("Code = %d, want %d", err.Code, CodeCatalogLookupFailed)
	}
}

func TestIsUserVisible(t *testing.T) {
	internal := New(CodeMessageFormatFailed, "bad format")
	if internal.IsUserVisible() {
		t.Fatal("expected low-numbered code to be internal")
	}

	visible := New(CodeFirstUserVisible, "table already exists")
	if !visible.IsUserVisible() {
		t.Fatal("expected CodeFirstUserVisible and above to be user-visible")
	}
}

func TestCompoundErrorCollectsAndIgnoresNil(t *testing.T) {
	var c CompoundError
	c.Add(nil)
	if c.HasErrors() {
		t.Fatal("Add(nil) should not register an error")
	}

	c.Add(New(CodeFirstUserVisible, "column A is invalid"))
	c.Add(New(CodeFirstUserVisible, "column B is invalid"))
	if !c.HasErrors() {
		t.Fatal("expected HasErrors after two Add calls")
	}
	if err := c.AsError(); err == nil {
		t.Fatal("expected AsError to return non-nil once errors were collected")
	}
}

func TestCompoundErrorAsErrorNilWhenEmpty(t *testing.T) {
	var c CompoundError
	if err := c.AsError(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
