package config

import (
	"encoding/base64"
	"github.com/rs/zerolog"

	"github.com/pkg/errors"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const MsgFailedToReadConfiguration = "failed to read configuration"

var ErrFailedToReadConfiguration = errors.New(MsgFailedToReadConfiguration)

type Configuration struct {
	OperationLogSettings struct {
		MemoryLogSize int `envconfig:"OPERATION_LOG_MEMORY_SIZE" required:"true" default:"500"`
	}
	APIPort                            uint16        `envconfig:"API_PORT" default:"8080"`
	Authorization                      bool          `envconfig:"AUTHORIZATION" default:"true"`
	ClientID                           string        `envconfig:"CLIENT_ID" required:"true"`
	ClientSecret                       string        `envconfig:"CLIENT_SECRET" required:"true"`
	EnableTLS                          bool          `envconfig:"ENABLE_TLS" default:"false"`
	BloodlabCertPath                   string        `envconfig:"BLOODLAB_CERT_PATH" default:"../bloodlab_cert.pem"`
	BloodlabKeyPath                    string        `envconfig:"BLOODLAB_KEY_PATH" default:"../bloodlab_key.pem"`
	Development                        bool          `envconfig:"DEVELOPMENT" default:"false"`
	PermittedOrigin                    string        `envconfig:"PERMITTED_ORIGIN_URL" default:"*"`
	OIDCBaseURL                        string        `envconfig:"OIDC_BASE_URL" default:"https://iam.bloodlab.org/realms/test.bloodlab.org"`
	LogLevel                           zerolog.Level `envconfig:"LOG_LEVEL" default:"1"`
	ApplicationName                    string        `envconfig:"APPLICATION_NAME" default:"qcgraph"`
	LogicURL                           string        `envconfig:"LOGIC_URL" required:"true" default:"http://logic-control"`
	PrintServiceURL                    string        `envconfig:"PRINT_SERVICE_URL" default:"http://print-service"`
	Proxy                              string        `envconfig:"PROXY" default:""`
	Timezone                           string        `envconfig:"TIMEZONE" default:"Europe/Berlin"`
	DefaultQueryRangeDays              int           `envconfig:"DEFAULT_QUERY_RANGE_DAYS" default:"30"`
	StandardAPIClientTimeoutSeconds    uint          `envconfig:"STANDARD_API_CLIENT_TIMEOUT_SECONDS" default:"10"`
	RequestTimeoutSeconds              uint          `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"30"`
	LongPollingAPIClientTimeoutSeconds uint          `envconfig:"LONG_POLLING_API_CLIENT_TIMEOUT_SECONDS" default:"80"`
	LongPollingRetrySeconds            int           `envconfig:"LONG_POLLING_RETRY_SECONDS" default:"30"`
	NotificationQueueWorkers           int           `envconfig:"NOTIFICATION_QUEUE_WORKERS" default:"1"`
	AssayCacheTTLSeconds               int           `envconfig:"ASSAY_CACHE_TTL_SECONDS" default:"300"`
	RedisUrl                           string        `envconfig:"REDIS_URL" default:""`
	RedisPort                          int           `envconfig:"REDIS_PORT" default:"6379"`

	ClientCredentialAuthHeaderValue string
}

func ReadConfiguration() (Configuration, error) {
	var config Configuration
	err := envconfig.Process("", &config)
	if err != nil {
		err = errors.Wrap(err, MsgFailedToReadConfiguration)
		log.Error().Err(err).Msgf("%s\n", ErrFailedToReadConfiguration)
		return config, err
	}
	config.ClientCredentialAuthHeaderValue = base64.StdEncoding.EncodeToString([]byte(config.ClientID + ":" + config.ClientSecret))
	return config, nil
}
