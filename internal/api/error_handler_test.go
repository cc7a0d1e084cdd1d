package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fleettrack/tracking-system/internal/core/domain"
)

func render(t *testing.T, err error) (int, map[string]string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	return rec.Code, body
}

func TestErrorHandler_ValidationIs400(t *testing.T) {
	code, body := render(t, fmt.Errorf("%w: vehicleId is required", domain.ErrValidation))
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if body["error"] == "" {
		t.Errorf("expected a descriptive error message")
	}
}

func TestErrorHandler_StorageIs503(t *testing.T) {
	code, body := render(t, fmt.Errorf("append position: %w", errors.Join(domain.ErrStorage, errors.New("connection reset"))))
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	// Internal causes must not leak to the client.
	if body["error"] != "position store unavailable" {
		t.Errorf("unexpected message: %q", body["error"])
	}
}

func TestErrorHandler_EchoErrorsKeepTheirCode(t *testing.T) {
	code, _ := render(t, echo.NewHTTPError(http.StatusUnprocessableEntity, "coordinates is required"))
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestErrorHandler_UnknownErrorIs500(t *testing.T) {
	code, body := render(t, errors.New("boom"))
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if body["error"] != "internal server error" {
		t.Errorf("internal details must not leak, got: %q", body["error"])
	}
}
