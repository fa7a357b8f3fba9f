package usererr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndMessage(t *testing.T) {
	sentinel := errors.New("slug taken")
	err := fmt.Errorf("create: %w", Wrap(sentinel))

	msg, ok := Message(err)
	if !ok || msg != "slug taken" {
		t.Errorf("Message = %q, %v; want %q, true", msg, ok, "slug taken")
	}
	if !errors.Is(err, sentinel) {
		t.Error("wrapped error should match sentinel")
	}
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if _, ok := Message(errors.New("db down")); ok {
		t.Error("plain error should carry no message")
	}
	if w := Wrap(Wrap(sentinel)); w.(*Error).Err != sentinel {
		t.Error("Wrap should not double wrap")
	}
}
