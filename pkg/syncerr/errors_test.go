package syncerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("aligning: %w", NewAlignment(3, "anchor count mismatch", "a.pdf", "b.pdf"))

	if !errors.Is(err, ErrAlignment) {
		t.Errorf("errors.Is(err, ErrAlignment) = false, want true")
	}
	if errors.Is(err, ErrPageCountMismatch) {
		t.Errorf("errors.Is(err, ErrPageCountMismatch) = true, want false")
	}
	if got := CodeOf(err); got != CodeAlignment {
		t.Errorf("CodeOf() = %q, want %q", got, CodeAlignment)
	}
}

func TestError_MessageCarriesPathsAndPage(t *testing.T) {
	err := NewAlignment(2, "anchor count mismatch", "a.pdf", "b.pdf")
	msg := err.Error()
	for _, want := range []string{"ALIGNMENT_ERROR", "a.pdf", "b.pdf", "page 2"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewExternalEngine("engine failed", cause, "doc.pdf")
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	if CodeOf(cause) != "" {
		t.Errorf("CodeOf(plain error) = %q, want empty", CodeOf(cause))
	}
}
