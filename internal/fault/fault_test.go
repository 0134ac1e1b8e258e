package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Newf(Validation, "validate", "missing input"), false},
		{Newf(DependencyUnavailable, "completion", "timeout"), true},
		{Newf(EmptyResult, "response", "empty"), true},
		{Newf(PartialPersistence, "persist", "second append failed"), true},
		{errors.New("unclassified"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Errorf("Retryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestClassSurvivesWrapping(t *testing.T) {
	inner := New(DependencyUnavailable, "conversation", errors.New("dial tcp: refused"))
	wrapped := fmt.Errorf("processing request: %w", inner)

	if ClassOf(wrapped) != DependencyUnavailable {
		t.Fatalf("expected class to survive wrapping, got %q", ClassOf(wrapped))
	}
	if !Retryable(wrapped) {
		t.Fatal("expected wrapped dependency failure to stay retryable")
	}
}

func TestErrorStringIncludesClassAndStage(t *testing.T) {
	err := New(EmptyResult, "response", errors.New("no usable content"))
	got := err.Error()
	if got != "EMPTY_RESULT at response: no usable content" {
		t.Fatalf("unexpected message %q", got)
	}
}
