package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{BadRequest("x"), http.StatusBadRequest},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{InvalidStatus("x"), http.StatusConflict},
		{RateLimited("x"), http.StatusTooManyRequests},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", tc.err.Code, got, tc.want)
		}
	}
}

func TestCodeOfUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("accept: %w", Forbidden("not yours"))
	if got := CodeOf(wrapped); got != CodeForbidden {
		t.Fatalf("CodeOf(wrapped) = %q, want %q", got, CodeForbidden)
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("CodeOf(plain) = %q, want %q", got, CodeInternal)
	}
	if Is(nil, CodeInternal) {
		t.Fatalf("Is(nil) should be false")
	}
}

func TestForbiddenAndInvalidStatusAreDistinct(t *testing.T) {
	f := Forbidden("role")
	s := InvalidStatus("state")
	if f.HTTPStatus() == s.HTTPStatus() {
		t.Fatalf("forbidden and invalid_status share status %d", f.HTTPStatus())
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	e := From(errors.New("pq: connection refused"))
	if e.Code != CodeInternal || e.Body().Error.Message == "pq: connection refused" {
		t.Fatalf("internal error leaked its cause: %+v", e.Body())
	}
	typed := NotFound("service not found").WithDetails(map[string]int{"id": 7})
	if got := From(typed); got != typed {
		t.Fatalf("From returned a copy of a typed error")
	}
	if b := typed.Body(); b.Error.Code != CodeNotFound || b.Error.Details == nil {
		t.Errorf("body = %+v", b)
	}
}

func TestErrorKeepsCause(t *testing.T) {
	e := Internal(errors.New("disk full")).WithOp("rating.recompute")
	want := "rating.recompute: Something went wrong, please try again: disk full"
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if e.Body().Error.Message != "Something went wrong, please try again" {
		t.Errorf("body message = %q", e.Body().Error.Message)
	}
	if got := NotFound("service not found").WithOp("service.get").Error(); got != "service.get: service not found" {
		t.Errorf("Error() = %q", got)
	}
}
