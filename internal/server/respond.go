package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tbckr/mailcheck/internal/apperr"
)

type apiError struct {
	Object  string      `json:"object"`
	Type    apperr.Type `json:"type"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Param   string      `json:"param,omitempty"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response",
				slog.String("error", err.Error()),
				slog.String("request_id", RequestID(r.Context())),
			)
		}
	}
}

// respondError renders err as the error envelope. Errors outside the apperr
// taxonomy become internal errors.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	switch {
	case ok:
	case errors.Is(err, context.DeadlineExceeded):
		appErr = apperr.Timeout("Request timed out")
	default:
		msg := err.Error()
		if s.livemode {
			msg = "An internal error occurred"
		}
		appErr = apperr.Internal("", msg, err)
	}

	level := slog.LevelDebug
	if appErr.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		slog.String("request_id", RequestID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("code", appErr.Code),
		slog.String("error", err.Error()),
	)

	s.respond(w, r, errorResponse{Error: apiError{
		Object:  "error",
		Type:    appErr.Type,
		Code:    appErr.Code,
		Message: appErr.Message,
		Param:   appErr.Param,
	}}, appErr.Status)
}

func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.InvalidRequest(apperr.CodeInvalidParameters, "Invalid JSON in request body", "")
	}
	return s.check(v)
}

// check runs struct validation and reports the first failing field.
func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.InvalidRequest(apperr.CodeInvalidParameters, err.Error(), "")
	}
	fe := fieldErrs[0]
	return apperr.InvalidRequest(apperr.CodeInvalidParameters, fieldMessage(fe), fieldPath(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email format"
	}
	return "Invalid value for " + fe.Field()
}

// fieldPath turns "verifyRequest.options.check_smtp" into "options.check_smtp".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
