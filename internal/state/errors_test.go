package state

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("connect: %w", badRequest("database connection failed", cause))

	if !errors.Is(err, ErrBadRequest) {
		t.Error("bad request error does not match ErrBadRequest")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("bad request error matches ErrNotFound")
	}
	if !errors.Is(err, cause) {
		t.Error("driver cause lost")
	}
	if KindOf(err) != KindBadRequest {
		t.Errorf("KindOf = %v, want KindBadRequest", KindOf(err))
	}
	if want := "connect: database connection failed: dial tcp: connection refused"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	nf := notFound("abc")
	if !errors.Is(nf, ErrNotFound) || KindOf(nf) != KindNotFound {
		t.Errorf("notFound kind mismatch: %v", nf)
	}
	if KindOf(cause) != 0 {
		t.Error("plain error should have no kind")
	}
}
