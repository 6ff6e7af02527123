package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"mentorloop-backend/internal/feedback"
)

func TestQueryInt(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?page=3&month_index=abc&empty=", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, 3, queryInt(c, "page", 1))
	assert.Equal(t, 0, queryInt(c, "month_index", 0), "malformed values take the fallback")
	assert.Equal(t, 5, queryInt(c, "empty", 5))
	assert.Equal(t, 7, queryInt(c, "missing", 7))
}

func TestHttpError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad input", feedback.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: feedback x", feedback.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: wrong mentor", feedback.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: duplicate", feedback.ErrConflict), http.StatusConflict},
		{fmt.Errorf("plain failure"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		he, ok := httpError(tc.err).(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, tc.code, he.Code, tc.err.Error())
	}
}
