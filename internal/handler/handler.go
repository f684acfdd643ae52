// Package handler exposes the services over HTTP with gin.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusevents-backend/internal/apperrors"
	"campusevents-backend/internal/auth"
	"campusevents-backend/internal/service"
)

// Handler holds the dependencies shared by every route.
type Handler struct {
	registrations *service.RegistrationService
	events        *service.EventService
	accounts      *service.AccountService
	tokens        *auth.Resolver
	logger        *slog.Logger
}

// New constructs a Handler.
func New(
	registrations *service.RegistrationService,
	events *service.EventService,
	accounts *service.AccountService,
	tokens *auth.Resolver,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registrations: registrations,
		events:        events,
		accounts:      accounts,
		tokens:        tokens,
		logger:        logger,
	}
}

func jsonError(c *gin.Context, status int, code apperrors.Code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

// writeError maps err to its HTTP status. Internal causes are logged and
// never reach the client.
func (h *Handler) writeError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}
	if appErr.Code == apperrors.CodeInternal {
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(requestIDKey)),
		}
		if appErr.Cause != nil {
			attrs = append(attrs, slog.String("error", appErr.Cause.Error()))
		}
		h.logger.Error("request failed", attrs...)
	}
	jsonError(c, appErr.Code.HTTPStatus(), appErr.Code, appErr.Message)
}

func badRequest(c *gin.Context, err error) {
	jsonError(c, http.StatusBadRequest, apperrors.CodeInvalidInput, "invalid request: "+err.Error())
}
