package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	Period string `json:"period" default:"1m" validate:"oneof=1m 3m"`
}

type testHandler struct{}

func (testHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		var req echoRequest
		if verr := ReadAndValidateRequest(c, &req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("no such model").WithError(errors.New("lookup")))
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("kaboom")
	})
	e.GET("/plain", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("raw"))
	})
}

func serve(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServerEnvelopeAndValidation(t *testing.T) {
	s := NewServer(testHandler{}, nil, WithMetricsPath(""))

	rec := serve(t, s, http.MethodPost, "/echo", `{"symbol":"AAPL"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"message":"OK","data":{"symbol":"AAPL","period":"1m"}}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(t, s, http.MethodPost, "/echo", `{"period":"9y"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"symbol"`)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_ONEOF"`)

	rec = serve(t, s, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
	assert.NotContains(t, rec.Body.String(), "lookup")

	rec = serve(t, s, http.MethodGet, "/plain", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServerRecoversPanics(t *testing.T) {
	s := NewServer(testHandler{}, nil, WithMetricsPath(""))
	rec := serve(t, s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
