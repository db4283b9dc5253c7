package middleware

import "github.com/gin-gonic/gin"

// ClientError is the body of a request rejected by the auth middlewares. The keys
// match the ones of the qc graph api so the frontend translates both alike.
type ClientError struct {
	MessageKey    string            `json:"messageKey"`
	Message       string            `json:"message"`
	MessageParams map[string]string `json:"messageParams,omitempty"`
}

const (
	MsgMissingToken    = "no bearer token in request"
	MsgInvalidToken    = "bearer token is invalid"
	MsgTokenExpired    = "bearer token expired"
	MsgJWKSUnavailable = "signing keys of the identity provider could not be loaded"
	MsgMissingRole     = "user lacks the role required by this endpoint"
)

var (
	ErrMissingToken    = ClientError{MessageKey: "missingToken", Message: MsgMissingToken}
	ErrInvalidToken    = ClientError{MessageKey: "invalidToken", Message: MsgInvalidToken}
	ErrTokenExpired    = ClientError{MessageKey: "tokenExpired", Message: MsgTokenExpired}
	ErrJWKSUnavailable = ClientError{MessageKey: "identityProviderUnavailable", Message: MsgJWKSUnavailable}
	ErrMissingRole     = ClientError{MessageKey: "permissionDenied", Message: MsgMissingRole}
)

// WithParam returns a copy of the error carrying one more message parameter.
func (e ClientError) WithParam(key, value string) ClientError {
	params := make(map[string]string, len(e.MessageParams)+1)
	for k, v := range e.MessageParams {
		params[k] = v
	}
	params[key] = value
	e.MessageParams = params
	return e
}

func abortWith(c *gin.Context, status int, clientError ClientError) {
	c.AbortWithStatusJSON(status, clientError)
}
