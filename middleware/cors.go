package middleware

import (
	"strings"

	"github.com/blutspende/qcgraph/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CreateCorsMiddleware allows every origin while authorization is off, otherwise only
// the comma separated PermittedOrigin list. Chart pages stream over SSE, so the
// Last-Event-ID header is accepted as well.
func CreateCorsMiddleware(configuration *config.Configuration) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = !configuration.Authorization
	corsConfig.AllowCredentials = true

	if configuration.Authorization {
		corsConfig.AllowOrigins = permittedOrigins(configuration.PermittedOrigin)
	}

	corsConfig.AllowHeaders = []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"accept",
		"origin",
		"Cache-Control",
		"Last-Event-ID",
		"X-Requested-With",
	}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE"}

	return cors.New(corsConfig)
}

func permittedOrigins(permittedOrigin string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(permittedOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
