package qcgraph

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/blutspende/qcgraph/config"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewRestyClient creates the client for calls that carry no service token, such as
// the OIDC discovery calls of the auth manager.
func NewRestyClient(ctx context.Context, configuration *config.Configuration, useProxy bool) *resty.Client {
	client := resty.New().
		SetTimeout(time.Duration(configuration.StandardAPIClientTimeoutSeconds) * time.Second).
		OnBeforeRequest(configureRequest(ctx, configuration))

	if configuration.Development {
		client = client.SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	}
	if useProxy && configuration.Proxy != "" {
		client.SetProxy(configuration.Proxy)
	}

	return client
}

// NewRestyClientWithAuthManager creates a client for service-to-service calls. The
// only retry is the one after a 401, once the client credential has been refreshed.
func NewRestyClientWithAuthManager(ctx context.Context, configuration *config.Configuration, authManager AuthManager, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(1).
		AddRetryCondition(configureRetryMechanismForService2ServiceCalls(authManager)).
		OnBeforeRequest(configureRequest(ctx, configuration)).
		OnBeforeRequest(func(client *resty.Client, request *resty.Request) error {
			authToken, err := authManager.GetClientCredential()
			if err != nil {
				log.Error().Err(err).Msg("refresh internal api client auth token failed")
				return err
			}
			request.SetAuthToken(authToken)
			return nil
		})

	if configuration.Development {
		client = client.SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	}

	return client
}

// configureRequest falls back to the service context for requests that were
// created without one.
func configureRequest(ctx context.Context, configuration *config.Configuration) resty.RequestMiddleware {
	return func(client *resty.Client, request *resty.Request) error {
		if request.Context() == context.Background() {
			request.SetContext(ctx)
		}
		if configuration.LogLevel <= zerolog.DebugLevel {
			request.EnableTrace()
		}
		return nil
	}
}

func configureRetryMechanismForService2ServiceCalls(authManager AuthManager) resty.RetryConditionFunc {
	return func(response *resty.Response, err error) bool {
		if response != nil && response.StatusCode() == http.StatusUnauthorized {
			err := authManager.RefreshClientCredential()
			if err != nil {
				log.Error().Err(err).Msg("Skip service-to-service retry routine")
				return false
			}

			return true
		}

		return false
	}
}
