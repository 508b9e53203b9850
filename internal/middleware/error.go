package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
)

// ErrorHandler returns a Gin middleware that renders the last error attached
// to the context, unless the handler has already written a response. Binding
// errors become INVALID_INPUT; AppErrors keep their code and status; anything
// else is logged and reported as an internal error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		if last.IsType(gin.ErrorTypeBind) {
			writeAppError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, last.Error()))
			return
		}

		var appErr *apperrors.AppError
		if errors.As(last.Err, &appErr) {
			if appErr.Internal != nil {
				logger.Get().Errorw("app error",
					"code", appErr.Code,
					"internal", appErr.Internal.Error(),
					"path", c.Request.URL.Path,
				)
			}
			writeAppError(c, appErr)
			return
		}

		logger.Get().Errorw("unexpected error",
			"error", last.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		writeAppError(c, apperrors.ErrInternalServer)
	}
}

func writeAppError(c *gin.Context, appErr *apperrors.AppError) {
	c.JSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
