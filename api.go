package qcgraph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/blutspende/qcgraph/config"
	"github.com/blutspende/qcgraph/middleware"
	"github.com/blutspende/qcgraph/oplog/model"
	oplogservice "github.com/blutspende/qcgraph/oplog/service"
	"github.com/blutspende/qcgraph/server"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	timeout "github.com/vearne/gin-timeout"
)

type GinApi interface {
	Run() error
	Engine() *gin.Engine
}

type clientError struct {
	MessageKey string `json:"messageKey"`
	Message    string `json:"message"`
}

const (
	keyBadRequest          = "badRequest"
	keyPageNotFound        = "pageNotFound"
	keyResultNotFound      = "resultNotFound"
	keyPermissionDenied    = "permissionDenied"
	keyOperationFailed     = "operationFailed"
	keyInternalServerError = "internalServerError"
)

type api struct {
	config              *config.Configuration
	engine              *gin.Engine
	pageManager         PageManager
	assayCache          AssayCache
	operationLogService oplogservice.OperationLogService
	pageSSEServer       *server.SSEServer[PageViewUpdate]
	operationLogSSE     *server.SSEServer[model.OperationLogDTO]
}

func (api *api) Run() error {
	if api.config.EnableTLS {
		return api.engine.RunTLS(fmt.Sprintf(":%d", api.config.APIPort), api.config.BloodlabCertPath, api.config.BloodlabKeyPath)
	}

	return api.engine.Run(fmt.Sprintf(":%d", api.config.APIPort))
}

func (api *api) Engine() *gin.Engine {
	return api.engine
}

func NewAPI(ctx context.Context, config *config.Configuration, jwksProvider middleware.JWKSProvider, pageManager PageManager, assayCache AssayCache,
	operationLogService oplogservice.OperationLogService, operationLogSSE *server.SSEServer[model.OperationLogDTO]) GinApi {
	return newAPI(ctx, gin.New(), config, jwksProvider, pageManager, assayCache, operationLogService, operationLogSSE)
}

func newAPI(ctx context.Context, engine *gin.Engine, config *config.Configuration, jwksProvider middleware.JWKSProvider, pageManager PageManager,
	assayCache AssayCache, operationLogService oplogservice.OperationLogService, operationLogSSE *server.SSEServer[model.OperationLogDTO]) GinApi {

	if config.LogLevel <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine.Use(gin.Recovery())

	api := api{
		config:              config,
		engine:              engine,
		pageManager:         pageManager,
		assayCache:          assayCache,
		operationLogService: operationLogService,
		pageSSEServer:       server.NewSSEServer[PageViewUpdate](ctx, "pageId", PageViewEventName, pageViewTopic, nil),
		operationLogSSE:     operationLogSSE,
	}
	pageManager.RegisterPageListener(newPageViewBroadcaster(api.pageSSEServer), PageCreatedEvent, PageClosedEvent)

	engine.Use(middleware.CreateCorsMiddleware(config))

	root := engine.Group("")
	root.GET("/health", api.GetHealth)

	v1Group := root.Group("v1")
	if config.Authorization {
		v1Group.Use(middleware.CheckAuth(jwksProvider))
	}
	v1Group.Use(middleware.RoleProtection(middleware.QcViewerRoles, false, config.Authorization))

	// streams stay open, so they are registered without the request timeout
	streams := v1Group.Group("")
	{
		streams.GET("/pages/:pageId/stream", api.pageSSEServer.ServeHTTP())
		if operationLogSSE != nil {
			streams.GET("/operation-logs/:deviceId/stream", operationLogSSE.ServeHTTP())
		}
	}

	requestTimeout := time.Duration(config.RequestTimeoutSeconds) * time.Second
	timed := v1Group.Group("")
	timed.Use(timeout.Timeout(timeout.WithTimeout(requestTimeout), timeout.WithErrorHttpCode(http.StatusRequestTimeout)))

	pagesGroup := timed.Group("/pages")
	{
		pagesGroup.GET("", api.GetPages)
		pagesGroup.POST("", api.CreatePage)
		pagesGroup.GET("/:pageId", api.GetPage)
		pagesGroup.DELETE("/:pageId", api.DeletePage)
		pagesGroup.POST("/:pageId/events", api.DispatchPageEvent)
		pagesGroup.GET("/:pageId/chart.png", api.GetChartPNG)
		pagesGroup.GET("/:pageId/chart.html", api.GetChartHTML)
		pagesGroup.POST("/:pageId/print", api.PrintPage)
		pagesGroup.PUT("/:pageId/results/:resultId/calculated", api.ToggleCalculated)
		pagesGroup.PUT("/:pageId/results/:resultId/out-of-control", api.SaveOutOfControlDisposition)
		pagesGroup.PUT("/:pageId/levels/:slot/target", api.UpdateTargetValue)
	}

	timed.GET("/operation-logs/:deviceId", api.GetOperationLogs)

	assaysGroup := timed.Group("/assays")
	{
		assaysGroup.GET("", api.GetAssays)
		assaysGroup.DELETE("/cache", middleware.RoleProtection([]middleware.UserRole{middleware.Admin}, true, config.Authorization), api.InvalidateAssayCache)
	}

	// Development-option enables debugger, this can have side-effects
	if config.Development {
		debug := root.Group("/debug/pprof")
		{
			debug.GET("/", gin.WrapF(pprof.Index))
			debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
			debug.GET("/profile", gin.WrapF(pprof.Profile))
			debug.GET("/symbol", gin.WrapF(pprof.Symbol))
			debug.GET("/trace", gin.WrapF(pprof.Trace))
			debug.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
			debug.GET("/heap", gin.WrapH(pprof.Handler("heap")))
			debug.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
		}
	}

	return &api
}

// requestContext carries the authenticated user on to the permission lookup.
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if user, ok := middleware.GetUser(c); ok {
		ctx = ContextWithUser(ctx, user)
	}
	return ctx
}
