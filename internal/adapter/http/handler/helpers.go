package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodyBytes    = 4 << 20
)

var validate = validator.New()

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps err and writes it. Unmapped errors are logged and
// their detail is withheld.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapDomainError(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, status, code, "")
		return
	}
	if errors.Is(err, domain.ErrConcurrentRequest) {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, code, err.Error())
}

// mapDomainError maps domain errors to HTTP status codes and error codes.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity, "idempotency_key_reused"
	case errors.Is(err, domain.ErrReference):
		return http.StatusUnprocessableEntity, "invalid_reference"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrUnbalanced):
		return http.StatusUnprocessableEntity, "unbalanced"
	case errors.Is(err, domain.ErrEmptyEntry):
		return http.StatusUnprocessableEntity, "empty_entry"
	case errors.Is(err, domain.ErrPeriodClosed):
		return http.StatusConflict, "period_closed"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrAlreadyClosed):
		return http.StatusConflict, "already_closed"
	case errors.Is(err, domain.ErrAlreadyOpened):
		return http.StatusConflict, "already_opened"
	case errors.Is(err, domain.ErrHasChildren):
		return http.StatusConflict, "has_children"
	case errors.Is(err, domain.ErrCycle):
		return http.StatusConflict, "cycle"
	case errors.Is(err, domain.ErrConcurrentRequest):
		return http.StatusConflict, "concurrent_request"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON decodes the request body into dst and validates its tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, ", "))
}

// actorFrom returns the resolved actor or writes 401.
func actorFrom(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
	}
	return actor, ok
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parsePage reads limit and offset, clamping limit to maxPageSize.
func parsePage(r *http.Request) (limit, offset int) {
	limit = parseIntQuery(r, "limit", defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset = parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseBoolQuery(r *http.Request, key string) (bool, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", domain.ErrValidation, key)
	}
	return b, nil
}

// parseDateQuery parses a YYYY-MM-DD query parameter. A missing value yields
// def, or a validation error when def is zero.
func parseDateQuery(r *http.Request, key string, def time.Time) (time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		if def.IsZero() {
			return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrValidation, key)
		}
		return def, nil
	}
	t, err := domain.ParseDate(val)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", domain.ErrValidation, key)
	}
	return t, nil
}

func parseOptionalDateQuery(r *http.Request, key string) (*time.Time, error) {
	if r.URL.Query().Get(key) == "" {
		return nil, nil
	}
	t, err := parseDateQuery(r, key, time.Time{})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDecimalQuery(r *http.Request, key string) (decimal.Decimal, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a decimal", domain.ErrValidation, key)
	}
	return d, nil
}

// splitQuery splits a comma separated query parameter, dropping blanks.
func splitQuery(r *http.Request, key string) []string {
	var out []string
	for _, part := range strings.Split(r.URL.Query().Get(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseImportMode(r *http.Request) (domain.ImportMode, error) {
	mode := domain.ImportMode(r.URL.Query().Get("mode"))
	if mode == "" {
		return domain.ImportModeUpsert, nil
	}
	if !mode.IsValid() {
		return "", fmt.Errorf("%w: unknown import mode %q", domain.ErrValidation, mode)
	}
	return mode, nil
}
