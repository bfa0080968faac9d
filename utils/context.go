package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/utils/apperrors"
)

// GetUserIDFromContext extracts the authenticated user's ID set by the
// auth middleware.
func GetUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get("user_id")
	if !exists {
		logger.WarnLogger.Warn("user_id missing from request context")
		return uuid.Nil, apperrors.New(apperrors.Unauthorized, "unauthenticated", "authentication required")
	}

	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, apperrors.New(apperrors.Unauthorized, "invalid_subject", "token subject is not a valid user ID")
		}
		return id, nil
	default:
		return uuid.Nil, apperrors.New(apperrors.Unauthorized, "invalid_subject", "token subject is not a valid user ID")
	}
}

// IsPrivileged reports whether the request carries an admin or staff
// role claim.
func IsPrivileged(c *gin.Context) bool {
	role, _ := c.Get("role")
	r, _ := role.(string)
	return r == "admin" || r == "staff"
}
