package qcgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	longpollclient "github.com/jcuga/golongpoll/client"
	"github.com/rs/zerolog/log"
)

const qcResultsCategory = "qc-results"

// QcResultNotification tells that QC results of an assay changed on the logic service.
type QcResultNotification struct {
	DeviceID  uuid.UUID `json:"deviceId"`
	AssayName string    `json:"assayName"`
	QcDocID   string    `json:"qcDocId"`
	ResultIDs []int64   `json:"resultIds"`
}

type LongPollClient interface {
	GetQcResultNotificationsChan() chan QcResultNotification
	StartQcResultLongPolling(ctx context.Context)
}

type longPollClient struct {
	restyClient       *resty.Client
	serviceName       string
	logicUrl          string
	timeoutSeconds    uint
	retryDelay        time.Duration
	notificationsChan chan QcResultNotification
}

func NewLongPollClient(restyClient *resty.Client, serviceName, logicUrl string, timeoutSeconds uint, retryDelay time.Duration) LongPollClient {
	return &longPollClient{
		restyClient:       restyClient,
		serviceName:       serviceName,
		logicUrl:          logicUrl,
		timeoutSeconds:    timeoutSeconds,
		retryDelay:        retryDelay,
		notificationsChan: make(chan QcResultNotification, 100),
	}
}

func (l *longPollClient) GetQcResultNotificationsChan() chan QcResultNotification {
	return l.notificationsChan
}

// StartQcResultLongPolling blocks until ctx is done. Failed polls are retried by the
// long poll client after retryDelay.
func (l *longPollClient) StartQcResultLongPolling(ctx context.Context) {
	u, err := url.Parse(l.logicUrl + "/v1/qc/results/poll")
	if err != nil {
		log.Error().Err(err).Msg(MsgLongPollSubscriptionFailed)
		return
	}

	httpClient := &http.Client{
		Transport: &RestyRoundTripper{restyClient: l.restyClient},
	}

	c, err := longpollclient.NewClient(longpollclient.ClientOptions{
		SubscribeUrl:         *u,
		Category:             fmt.Sprintf("%s:%s", l.serviceName, qcResultsCategory),
		PollTimeoutSeconds:   l.timeoutSeconds,
		ReattemptWaitSeconds: uint(l.retryDelay.Seconds()),
		HttpClient:           httpClient,
		OnFailure: func(err error) bool {
			log.Warn().Err(err).Msg("qc result long poll failed, retrying")
			return ctx.Err() == nil
		},
	})
	if err != nil {
		log.Error().Err(err).Msg(MsgLongPollSubscriptionFailed)
		return
	}

	events := c.Start(time.Now().UTC())
	defer c.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Long poll gracefully stopped")
			return
		case event, ok := <-events:
			if !ok {
				log.Warn().Msg("qc result long poll ended")
				return
			}

			notification, err := decodeQcResultNotification(event.Data)
			if err != nil {
				log.Error().Err(err).Interface("data", event.Data).Msg("unmarshal event data to qc result notification failed")
				continue
			}

			log.Debug().
				Str("assay", notification.AssayName).
				Str("deviceId", notification.DeviceID.String()).
				Int("resultCount", len(notification.ResultIDs)).
				Msg("Received qc result notification")

			select {
			case l.notificationsChan <- notification:
			case <-ctx.Done():
				return
			}
		}
	}
}

func decodeQcResultNotification(data interface{}) (QcResultNotification, error) {
	var notification QcResultNotification
	jsonData, err := json.Marshal(data)
	if err != nil {
		return notification, err
	}
	err = json.Unmarshal(jsonData, &notification)
	return notification, err
}
