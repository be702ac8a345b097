package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// InvalidTokenMessage is returned for every verification failure so callers
// cannot tell which check rejected the credential.
const InvalidTokenMessage = "Invalid or expired API key"

// RespondError maps a service error to its HTTP status and error code and
// writes the error envelope. Unknown errors are logged and reported as 500.
func RespondError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationFailed(c, verr.Error(), verr.Fields)
	case errors.Is(err, ErrOrganizationNotFound):
		Error(c, http.StatusNotFound, ErrOrganizationNotFound.Error(), "Organization not found")
	case errors.Is(err, ErrGatewayNotFound):
		Error(c, http.StatusNotFound, ErrGatewayNotFound.Error(), "Gateway not found")
	case errors.Is(err, ErrTokenNotFound):
		Error(c, http.StatusNotFound, ErrTokenNotFound.Error(), "Token not found")
	case errors.Is(err, ErrGatewayNameExists):
		Error(c, http.StatusConflict, ErrGatewayNameExists.Error(), "A gateway with this name already exists in the organization")
	case errors.Is(err, ErrTooManyActiveTokens):
		Error(c, http.StatusConflict, ErrTooManyActiveTokens.Error(), "Gateway already has the maximum number of active tokens; revoke one before rotating")
	case IsAuthFailure(err):
		Error(c, http.StatusUnauthorized, ErrInvalidToken.Error(), InvalidTokenMessage)
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.FullPath()).
			Msg("Unhandled request error")
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// RespondBindError writes a 400 for a request body gin could not bind.
func RespondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	fields := make([]FieldError, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := jsonFieldName(fe.Field())
		msg := validationMessage(name, fe.Tag(), fe.Param())
		fields = append(fields, FieldError{Field: name, Message: msg})
		msgs = append(msgs, msg)
	}
	ValidationFailed(c, strings.Join(msgs, "; "), fields)
}

func validationMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// jsonFieldName turns a Go field name into its camelCase JSON name.
func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	r := []rune(field)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
