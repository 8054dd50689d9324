package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validationf("bad_input", "bad input"), http.StatusBadRequest},
		{Conflictf("taken", "already there"), http.StatusConflict},
		{NotFoundf("missing", "not found"), http.StatusNotFound},
		{Authf("denied", "no"), http.StatusUnauthorized},
		{Statef("wrong_state", "not now"), http.StatusUnprocessableEntity},
		{Internalf(nil, "boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.err.Code, got, tc.want)
		}
	}
}

func TestFromPreservesWrappedErrors(t *testing.T) {
	original := Conflictf("taken", "already there")
	wrapped := fmt.Errorf("while saving: %w", original)

	got := From(wrapped)
	if got.Kind != KindConflict || got.Code != "taken" {
		t.Errorf("From lost the wrapped error: %+v", got)
	}

	unknown := From(errors.New("disk on fire"))
	if unknown.Kind != KindInternal {
		t.Errorf("unknown errors must map to internal, got %v", unknown.Kind)
	}
	if !errors.Is(unknown, unknown.Err) && unknown.Err == nil {
		t.Error("original error must be kept as the cause")
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NotFoundf("missing", "gone"))
	if !IsKind(err, KindNotFound) {
		t.Error("IsKind must see through wrapping")
	}
	if IsKind(err, KindConflict) {
		t.Error("IsKind must not match other kinds")
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Error("plain errors have no kind")
	}
}
