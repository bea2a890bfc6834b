package errs

import (
	"errors"
	"testing"
)

func TestErrorUnwrapAndIs(t *testing.T) {
	err := Crypto("decrypt", InvalidPassphrase)
	if !errors.Is(err, InvalidPassphrase) {
		t.Error("errors.Is should see through the wrapper")
	}
	var target *Error
	if !errors.As(err, &target) {
		t.Fatal("errors.As should find the *Error wrapper")
	}
	if target.Category != CategoryCrypto {
		t.Errorf("Category = %v; want %v", target.Category, CategoryCrypto)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Database("upsert-entry", DatabaseNotFound)
	want := "database: upsert-entry: record not found"
	if err.Error() != want {
		t.Errorf("Error() = %q; want %q", err.Error(), want)
	}
}

func TestErrorMessageNoOp(t *testing.T) {
	err := &Error{Category: CategoryIO, Err: errors.New("boom")}
	want := "io: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q; want %q", err.Error(), want)
	}
}

func TestCategoryOf(t *testing.T) {
	cat, ok := CategoryOf(Lock("acquire", FileBusy))
	if !ok || cat != CategoryLock {
		t.Errorf("CategoryOf = (%v, %v); want (%v, true)", cat, ok, CategoryLock)
	}

	_, ok = CategoryOf(errors.New("plain error"))
	if ok {
		t.Error("CategoryOf should report false for a non-*Error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "whatever") != nil {
		t.Error("Wrap(nil, ...) should return nil")
	}
	wrapped := Wrap(errors.New("cause"), "context")
	if wrapped.Error() != "context: cause" {
		t.Errorf("Wrap = %q", wrapped.Error())
	}
}
