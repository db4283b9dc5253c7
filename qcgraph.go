package qcgraph

import (
	"context"
	"time"

	"github.com/blutspende/qcgraph/config"
	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/blutspende/qcgraph/oplog/repository"
	oplogservice "github.com/blutspende/qcgraph/oplog/service"
	"github.com/blutspende/qcgraph/server"
	"github.com/blutspende/qcgraph/utils"
	"github.com/rs/zerolog/log"
)

// QcGraphAPI is the running chart service.
type QcGraphAPI interface {
	GetPageManager() PageManager
	Start() error
}

type qcGraph struct {
	ctx            context.Context
	config         *config.Configuration
	api            GinApi
	pageManager    PageManager
	longPollClient LongPollClient
}

// New wires the chart service from the environment configuration.
func New(ctx context.Context) (QcGraphAPI, error) {
	configuration, err := config.ReadConfiguration()
	if err != nil {
		return nil, err
	}
	return NewWithConfiguration(ctx, &configuration)
}

func NewWithConfiguration(ctx context.Context, configuration *config.Configuration) (QcGraphAPI, error) {
	location := utils.LoadLocation(configuration.Timezone)

	authManager := NewAuthManager(configuration, NewRestyClient(ctx, configuration, true))
	internalApiRestyClient := NewRestyClientWithAuthManager(ctx, configuration, authManager,
		time.Duration(configuration.StandardAPIClientTimeoutSeconds)*time.Second)
	longPollRestyClient := NewRestyClientWithAuthManager(ctx, configuration, authManager,
		time.Duration(configuration.LongPollingAPIClientTimeoutSeconds)*time.Second)

	logicClient, err := NewLogicControlClient(configuration.LogicURL, internalApiRestyClient)
	if err != nil {
		return nil, err
	}
	exportSink, err := NewPrintServiceSink(configuration.PrintServiceURL, internalApiRestyClient)
	if err != nil {
		return nil, err
	}

	var assayStore AssayStore
	if configuration.RedisUrl != "" {
		assayStore = NewRedisAssayStore(NewRedisClient(configuration.RedisUrl, configuration.RedisPort), configuration.ApplicationName)
	}
	assayCache := NewAssayCache(logicClient, assayStore, time.Duration(configuration.AssayCacheTTLSeconds)*time.Second)

	operationLogSSE := server.NewSSEServer[model.OperationLogDTO](ctx, "deviceId", oplogservice.OperationLogEventName,
		oplogservice.OperationLogTopic, oplogservice.NewOperationLogSSEClientListener())
	operationLogService := oplogservice.NewOperationLogService(
		repository.NewOperationLogRepository(configuration.OperationLogSettings.MemoryLogSize), operationLogSSE)

	pageManager := NewPageManager(ctx, PageDependencies{
		Fetcher:          NewQcResultFetcher(logicClient),
		Client:           logicClient,
		Assays:           assayCache,
		Permissions:      NewRolePermissionLookup(DefaultRolePermissions, configuration.Authorization),
		StatusCodes:      NewStatusCodeLookup(logicClient),
		OperationLog:     operationLogService,
		Renderer:         NewPlotRenderer(),
		Export:           exportSink,
		Location:         location,
		DefaultRangeDays: configuration.DefaultQueryRangeDays,
	})

	api := NewAPI(ctx, configuration, authManager, pageManager, assayCache, operationLogService, operationLogSSE)

	return &qcGraph{
		ctx:         ctx,
		config:      configuration,
		api:         api,
		pageManager: pageManager,
		longPollClient: NewLongPollClient(longPollRestyClient, configuration.ApplicationName, configuration.LogicURL,
			configuration.LongPollingAPIClientTimeoutSeconds, time.Duration(configuration.LongPollingRetrySeconds)*time.Second),
	}, nil
}

func (q *qcGraph) GetPageManager() PageManager {
	return q.pageManager
}

// Start runs the background routines and blocks in the API server.
func (q *qcGraph) Start() error {
	q.pageManager.StartNotificationWorkers(q.config.NotificationQueueWorkers)
	go q.longPollClient.StartQcResultLongPolling(q.ctx)
	go q.forwardQcResultNotifications(q.ctx)

	log.Info().Uint16("port", q.config.APIPort).Msg(ApiStartMsg)
	err := q.api.Run()
	if err != nil {
		log.Error().Err(err).Msg(ApiFailedToStartMsg)
		return err
	}
	log.Info().Msg(ApiEndedGracefullyMsg)
	return nil
}

func (q *qcGraph) forwardQcResultNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.pageManager.Close()
			return
		case notification, ok := <-q.longPollClient.GetQcResultNotificationsChan():
			if !ok {
				log.Error().Msg("forwarding qc result notifications stopped: channel closed")
				return
			}
			q.pageManager.SendQcResultNotification(notification)
		}
	}
}
