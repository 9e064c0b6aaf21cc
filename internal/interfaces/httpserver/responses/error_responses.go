package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// ErrorResponse represents an error response with platform error details
type ErrorResponse struct {
	Code          string `json:"code"` // UUID from PlatformError
	Type          string `json:"type,omitempty"`
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	ErrorInstance error  `json:"-"`
	RequestID     string `json:"request_id,omitempty"`
}

// HandleError handles domain errors and returns appropriate HTTP responses.
// Pipeline failures are collapsed into a coarse user-facing message; the
// precise cause stays in the logs and the error code.
func HandleError(reqCtx *gin.Context, err error, message string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		errorType := domainErr.GetErrorType()
		statusCode := platformerrors.ErrorTypeToHTTPStatus(errorType)

		errorMessage := domainErr.Message
		if coarse := coarseMessage(errorType); coarse != "" {
			errorMessage = coarse
		}
		if errorMessage == "" {
			errorMessage = message
		}

		errResp := ErrorResponse{
			Code:          domainErr.GetUUID(),
			Type:          string(errorType),
			Error:         errorMessage,
			Message:       errorMessage,
			ErrorInstance: domainErr,
			RequestID:     domainErr.GetRequestID(),
		}

		reqCtx.AbortWithStatusJSON(statusCode, errResp)
		return
	}
	// Non-platform errors
	errResp := ErrorResponse{
		Error:         message,
		Message:       message,
		ErrorInstance: err,
	}
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
}

// HandleNewError creates a new typed error at the route layer and handles it
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string, uuid string) {
	ctx := reqCtx.Request.Context()
	err := platformerrors.NewError(ctx, platformerrors.LayerRoute, errorType, message, nil, uuid)

	statusCode := platformerrors.ErrorTypeToHTTPStatus(err.GetErrorType())

	errResp := ErrorResponse{
		Code:          err.GetUUID(),
		Type:          string(errorType),
		Error:         message,
		Message:       message,
		ErrorInstance: err,
		RequestID:     err.GetRequestID(),
	}

	reqCtx.AbortWithStatusJSON(statusCode, errResp)
}

// coarseMessage maps seal and blob failure kinds onto the two stable
// user-facing strings so clients never see backend internals.
func coarseMessage(errorType platformerrors.ErrorType) string {
	switch errorType {
	case platformerrors.ErrorTypeEncryptionBackend, platformerrors.ErrorTypeBlobUpload:
		return "could not secure message"
	case platformerrors.ErrorTypeBlobDownload, platformerrors.ErrorTypeBlobNotFound, platformerrors.ErrorTypeIntegrityMismatch:
		return "could not retrieve message"
	}
	return ""
}
