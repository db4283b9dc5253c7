package qcgraph

import (
	"strings"
	"sync"

	"github.com/blutspende/qcgraph/config"

	"github.com/MicahParks/keyfunc"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const oidcURLPart = "/.well-known/openid-configuration"

var (
	ErrNoClientCredential = errors.New("no client credential")
	ErrInvalidTokenType   = errors.New("invalid token type")
)

type OpenIDConfiguration struct {
	Issuer        string `json:"issuer"`
	TokenEndpoint string `json:"token_endpoint"`
	JwksURI       string `json:"jwks_uri"`
}

type TokenEndpointResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

type AuthManager interface {
	GetJWKS() (*keyfunc.JWKS, error)
	GetClientCredential() (string, error)
	RefreshClientCredential() error
}

type authManager struct {
	configuration         *config.Configuration
	restClient            *resty.Client
	jwks                  *keyfunc.JWKS
	oidc                  *OpenIDConfiguration
	mutex                 sync.Mutex
	tokenEndpointResponse *TokenEndpointResponse
}

// NewAuthManager resolves the OIDC configuration lazily, the JWKS is only fetched
// when the API verifies a user token.
func NewAuthManager(configuration *config.Configuration, restClient *resty.Client) AuthManager {
	return &authManager{
		configuration: configuration,
		restClient:    restClient,
	}
}

func (m *authManager) GetJWKS() (*keyfunc.JWKS, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.jwks == nil {
		if err := m.loadJWKS(); err != nil {
			return nil, err
		}
	}
	return m.jwks, nil
}

func (m *authManager) GetClientCredential() (string, error) {
	m.mutex.Lock()
	tokenEndpointResponse := m.tokenEndpointResponse
	m.mutex.Unlock()

	if tokenEndpointResponse == nil {
		if err := m.RefreshClientCredential(); err != nil {
			return "", errors.Wrap(err, ErrNoClientCredential.Error())
		}
		m.mutex.Lock()
		tokenEndpointResponse = m.tokenEndpointResponse
		m.mutex.Unlock()
	}
	return tokenEndpointResponse.AccessToken, nil
}

func (m *authManager) RefreshClientCredential() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.ensureOIDC(); err != nil {
		return err
	}

	tokenEndpointResponse, err := m.callAuthProviderTokenEndpoint()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load JWT token from the authentication provider")
		return err
	}

	if !strings.EqualFold(tokenEndpointResponse.TokenType, "Bearer") {
		log.Error().Str("tokenType", tokenEndpointResponse.TokenType).Msg("Got invalid token type from the authentication provider")
		return ErrInvalidTokenType
	}

	m.tokenEndpointResponse = tokenEndpointResponse

	return nil
}

func (m *authManager) loadJWKS() error {
	if err := m.ensureOIDC(); err != nil {
		return err
	}

	jwks, err := keyfunc.Get(m.oidc.JwksURI, keyfunc.Options{
		Client:              m.restClient.GetClient(),
		RefreshErrorHandler: m.refreshErrorHandler,
		RefreshUnknownKID:   true,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to get JWKS from the authentication provider")
		return err
	}

	m.jwks = jwks

	return nil
}

func (m *authManager) refreshErrorHandler(err error) {
	log.Error().Err(err).Msg("Failed to get and refresh JWKS from the authentication provider")
}

func (m *authManager) callAuthProviderOIDCEndpoint() (*OpenIDConfiguration, error) {
	response, err := m.restClient.R().
		SetHeader("Content-Type", "application/json").
		SetResult(&OpenIDConfiguration{}).
		Get(strings.TrimRight(m.configuration.OIDCBaseURL, "/") + oidcURLPart)

	if err != nil {
		log.Error().Err(err).Msg("Failed to get OIDC from the authentication provider")
		return nil, err
	}

	if !response.IsSuccess() {
		err = errors.Errorf("unexpected status %s", response.Status())
		log.Error().Err(err).Msg("Failed to get OIDC from the authentication provider")
		return nil, err
	}

	return response.Result().(*OpenIDConfiguration), nil
}

func (m *authManager) callAuthProviderTokenEndpoint() (*TokenEndpointResponse, error) {
	response, err := m.restClient.R().
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("Cache-Control", "no-cache").
		SetAuthScheme("Basic").
		SetAuthToken(m.configuration.ClientCredentialAuthHeaderValue).
		SetResult(&TokenEndpointResponse{}).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(m.oidc.TokenEndpoint)

	if err != nil {
		log.Error().Err(err).Msg("Failed to get JWT token from the authentication provider's token endpoint")
		return nil, err
	}

	if !response.IsSuccess() {
		err = errors.Errorf("unexpected status %s", response.Status())
		log.Error().Err(err).Msg("Failed to get JWT token from the authentication provider's token endpoint")
		return nil, err
	}

	return response.Result().(*TokenEndpointResponse), nil
}

// ensureOIDC expects the caller to hold the mutex.
func (m *authManager) ensureOIDC() error {
	if m.oidc != nil {
		return nil
	}
	oidc, err := m.callAuthProviderOIDCEndpoint()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load OIDC from the authentication provider")
		return err
	}
	m.oidc = oidc
	return nil
}
