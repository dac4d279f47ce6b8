package utils

import (
	"net/http"
	"testing"
)

func TestAppErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NewBadRequestError("bad"), http.StatusBadRequest},
		{NewValidationError("invalid"), http.StatusUnprocessableEntity},
		{NewNotFoundError("missing"), http.StatusNotFound},
		{NewConflictError("busy"), http.StatusConflict},
		{NewInternalError("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if c.err.StatusCode != c.want {
			t.Errorf("%q: expected status %d, got %d", c.err.Message, c.want, c.err.StatusCode)
		}
		if c.err.Error() != c.err.Message {
			t.Errorf("Error() should return the message, got %q", c.err.Error())
		}
	}
}
