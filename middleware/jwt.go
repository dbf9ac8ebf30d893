package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/rfi-processor-be/types"
	"github.com/tieubaoca/rfi-processor-be/utils"
)

const UserClaimsKey = "user_claims"

func extractClaims(c *gin.Context) (*utils.UserClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return nil, false
	}
	claims, err := utils.ParseUserToken(tokenString)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the claims in the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := extractClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.DataResponse{
				Status:  false,
				Message: "unauthorized",
			})
			return
		}
		c.Set(UserClaimsKey, claims)
		c.Next()
	}
}

// AdminAuthMiddleware additionally requires the admin role.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := extractClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.DataResponse{
				Status:  false,
				Message: "unauthorized",
			})
			return
		}
		if claims.Role != types.USER_ROLE_ADMIN {
			c.AbortWithStatusJSON(http.StatusForbidden, types.DataResponse{
				Status:  false,
				Message: "admin role required",
			})
			return
		}
		c.Set(UserClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the authenticated user's claims, if any.
func ClaimsFromContext(c *gin.Context) (*utils.UserClaims, bool) {
	value, exists := c.Get(UserClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*utils.UserClaims)
	return claims, ok
}
