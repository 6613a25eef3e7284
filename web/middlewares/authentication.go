package middlewares

import (
	"net/http"
	"strings"

	"carolinalumpers.com/clockin/security"
	"carolinalumpers.com/clockin/web/common"
	"github.com/gin-gonic/gin"
)

const (
	ClaimsKey   = "claims"
	DeviceIDKey = "deviceId"

	deviceCookie = "clockin.DeviceToken"
)

// Authentication checks for a valid Bearer token or device cookie
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// Try to get from cookie
			cookie, err := c.Cookie(deviceCookie)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing device token"))
				return
			}

			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("malformed authorization header"))
				return
			}

			tokenStr = parts[1]
		}

		claims, err := security.ParseDeviceToken(tokenStr, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(DeviceIDKey, claims.DeviceID)
		c.Next()
	}
}
