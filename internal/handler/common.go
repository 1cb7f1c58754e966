package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

var errUnauthorized = errors.New("invalid user_id in context")

// getUserID returns the caller id JWTAuth put in the context.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errUnauthorized
	}
	return id, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// bindStrict decodes a JSON body into v, rejecting unknown fields and
// trailing data.
func bindStrict(c echo.Context, v any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("decode body: trailing data")
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// writeError maps service errors onto HTTP statuses.  Only the sentinel's
// message reaches the client; the full chain is logged.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrSlotUnavailable):
		status, msg = http.StatusBadRequest, service.ErrSlotUnavailable.Error()
	case errors.Is(err, service.ErrAlreadyCompleted):
		status, msg = http.StatusBadRequest, service.ErrAlreadyCompleted.Error()
	case errors.Is(err, service.ErrSignatureMismatch):
		status, msg = http.StatusBadRequest, service.ErrSignatureMismatch.Error()
	case errors.Is(err, service.ErrAlreadyPaid):
		status, msg = http.StatusConflict, service.ErrAlreadyPaid.Error()
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, service.ErrNotFound.Error()
	case errors.Is(err, service.ErrPaymentRejected):
		status, msg = http.StatusBadGateway, service.ErrPaymentRejected.Error()
	case errors.Is(err, service.ErrTransient):
		status, msg = http.StatusServiceUnavailable, "service temporarily unavailable"
	}
	entry := log.WithError(err).WithFields(logrus.Fields{
		"path":   c.Request().URL.Path,
		"status": status,
	})
	if status >= 500 {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	return c.JSON(status, echo.Map{"error": msg})
}
