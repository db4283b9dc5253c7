package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"
)

// UserContextKey is the gin context key of the authenticated UserToken.
const UserContextKey = "User"

type JWKSProvider interface {
	GetJWKS() (*keyfunc.JWKS, error)
}

// CheckAuth validates the bearer token of a request. SSE clients can not set headers,
// so the token is also accepted as access_token query parameter.
func CheckAuth(jwksProvider JWKSProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			abortWith(c, http.StatusUnauthorized, ErrMissingToken)
			return
		}

		jwks, err := jwksProvider.GetJWKS()
		if err != nil {
			log.Error().Err(err).Msg(MsgJWKSUnavailable)
			abortWith(c, http.StatusUnauthorized, ErrJWKSUnavailable)
			return
		}

		userToken := UserToken{}
		if _, err = jwt.ParseWithClaims(tokenString, &userToken, jwks.Keyfunc); err != nil {
			log.Debug().Err(err).Msg(MsgInvalidToken)
			abortWith(c, http.StatusUnauthorized, ErrInvalidToken)
			return
		}

		if !userToken.VerifyExpiresAt(time.Now(), true) {
			abortWith(c, http.StatusUnauthorized, ErrTokenExpired)
			return
		}

		c.Set(UserContextKey, userToken)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if token, ok := strings.CutPrefix(c.Request.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return c.Query("access_token")
}

// GetUser returns the user CheckAuth stored in the context.
func GetUser(c *gin.Context) (UserToken, bool) {
	userObj, ok := c.Get(UserContextKey)
	if !ok {
		return UserToken{}, false
	}
	user, ok := userObj.(UserToken)
	return user, ok
}
