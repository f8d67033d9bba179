package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/swimteam/backend/internal/application/session"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/logger"
	"github.com/swimteam/backend/internal/interfaces/http/dto"
)

const sessionKey = "session"

// Session resolves the X-Session-ID header to a registry session and stores
// it on the gin context. A missing header selects the default session.
func Session(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := registry.Get(c.Request.Context(), c.GetHeader(HeaderSessionID))
		if err != nil {
			code := dto.ErrCodeInternal
			var de *shared.DomainError
			if errors.As(err, &de) {
				code = dto.NormalizeErrorCode(de.Code)
			}
			c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
				dto.NewErrorResponseWithRequestID(code, err.Error(), GetRequestID(c)))
			return
		}
		c.Set(sessionKey, s)
		c.Set(logger.GinSessionIDKey, s.ID)
		c.Writer.Header().Set(HeaderSessionID, s.ID)
		c.Next()
	}
}

// GetSession returns the session stored by Session, or nil
func GetSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return nil
}
