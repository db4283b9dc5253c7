package middleware

import (
	"net/http"

	"github.com/blutspende/qcgraph/utils"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RoleProtection - Checks if user has roles
//
// @var strict bool - if strict is true, the user must have all the roles
func RoleProtection(roles []UserRole, strict, authMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		// For development, you can turn of the roleProtection
		if !authMode {
			c.Next()
			return
		}

		user, ok := GetUser(c)
		if !ok {
			log.Error().Msg(MsgInvalidToken)
			abortWith(c, http.StatusUnauthorized, ErrInvalidToken)
			return
		}

		if hasRoles(user.RealmAccess.Roles, roles, strict) {
			c.Next()
			return
		}

		required := utils.JoinStrings(roles, ",")
		log.Error().
			Str("user", user.Email).
			Str("roles", required).
			Msg(MsgMissingRole)
		abortWith(c, http.StatusForbidden, ErrMissingRole.WithParam("roles", required))
	}
}

func hasRoles(userRoles, required []UserRole, strict bool) bool {
	if !strict {
		return utils.SliceContainsAny(required, userRoles)
	}
	for _, role := range required {
		if !utils.SliceContains(role, userRoles) {
			return false
		}
	}
	return true
}
