package httpx

import (
	"net/http"
	"testing"

	"github.com/tinylink-dev/tinylink/internal/errx"
)

func TestErrorKindToStatus(t *testing.T) {
	tests := []struct {
		kind errx.Kind
		want int
	}{
		{errx.NotFound, http.StatusNotFound},
		{errx.Conflict, http.StatusConflict},
		{errx.Invalid, http.StatusBadRequest},
		{errx.Unavailable, http.StatusServiceUnavailable},
		{errx.Internal, http.StatusInternalServerError},
		{errx.Unknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := ErrorKindToStatus(tt.kind); got != tt.want {
				t.Errorf("ErrorKindToStatus(%v) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestErrorKindToCode(t *testing.T) {
	tests := []struct {
		kind errx.Kind
		want string
	}{
		{errx.NotFound, "not_found"},
		{errx.Conflict, "conflict"},
		{errx.Invalid, "invalid_input"},
		{errx.Unavailable, "unavailable"},
		{errx.Internal, "internal_error"},
		{errx.Unknown, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := ErrorKindToCode(tt.kind); got != tt.want {
				t.Errorf("ErrorKindToCode(%v) = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}
