package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeQuotaExceeded, http.StatusTooManyRequests},
		{CodeToolNotPermitted, http.StatusForbidden},
		{CodeProjectLimitReached, http.StatusForbidden},
		{CodeInvalidArguments, http.StatusBadRequest},
		{CodePrerequisiteMissing, http.StatusConflict},
		{CodeAlreadyComplete, http.StatusConflict},
		{CodeModelUnavailable, http.StatusBadGateway},
		{CodeConversationNotFound, http.StatusNotFound},
		{CodeDatabaseError, http.StatusInternalServerError},
		{ErrorCode("9999"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := New(tc.code, "x").HTTPStatus; got != tc.want {
			t.Errorf("code %s: status %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestCopiesDoNotMutateSentinel(t *testing.T) {
	e := ErrQuotaExceeded.WithDetail("used 20 of 20").WithSuggestions("upgrade to pro")
	if ErrQuotaExceeded.Detail != "" || len(ErrQuotaExceeded.Suggestions) != 0 {
		t.Fatalf("sentinel mutated: %+v", ErrQuotaExceeded)
	}
	if e.Detail != "used 20 of 20" || e.Code != CodeQuotaExceeded || len(e.Suggestions) != 1 {
		t.Fatalf("unexpected copy: %+v", e)
	}

	a := e.WithSuggestions("wait until tomorrow")
	if len(e.Suggestions) != 1 || len(a.Suggestions) != 2 {
		t.Fatalf("suggestions shared between copies: %v / %v", e.Suggestions, a.Suggestions)
	}
}

func TestAsSeesThroughWrapping(t *testing.T) {
	base := New(CodeDatabaseError, "db down")
	wrapped := fmt.Errorf("save message: %w", base)

	got, ok := As(wrapped)
	if !ok || got != base {
		t.Fatalf("As = %v, %v", got, ok)
	}
	if _, ok := As(stderrors.New("plain")); ok {
		t.Fatal("plain error is not an AppError")
	}
}
