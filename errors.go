package qcgraph

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidStatisticalBasis = errors.New(MsgInvalidStatisticalBasis)
	ErrPermissionDenied        = errors.New(MsgPermissionDenied)
	ErrUnknownEvent            = errors.New(MsgUnknownEvent)
	ErrInvalidEventPayload     = errors.New(MsgInvalidEventPayload)
	ErrInvalidLevelSlot        = errors.New(MsgInvalidLevelSlot)
	ErrResultNotFound          = errors.New(MsgResultNotFound)
	ErrQcDocNotFound           = errors.New(MsgQcDocNotFound)
	ErrResultNotOutOfControl   = errors.New(MsgResultNotOutOfControl)
	ErrInvalidXAxisMode        = errors.New(MsgInvalidXAxisMode)
	ErrInvalidDateRange        = errors.New(MsgInvalidDateRange)
	ErrNoExportSink            = errors.New(MsgNoExportSink)
	ErrPageNotFound            = errors.New(MsgPageNotFound)

	ErrQueryQcDocsFailed          = errors.New(MsgQueryQcDocsFailed)
	ErrQueryQcResultsFailed       = errors.New(MsgQueryQcResultsFailed)
	ErrQueryYoudenResultsFailed   = errors.New(MsgQueryYoudenResultsFailed)
	ErrUpdateTargetFailed         = errors.New(MsgUpdateTargetFailed)
	ErrUpdateCalculatedFailed     = errors.New(MsgUpdateCalculatedFailed)
	ErrUpdateDispositionFailed    = errors.New(MsgUpdateDispositionFailed)
	ErrGetAssayInfoFailed         = errors.New(MsgGetAssayInfoFailed)
	ErrGetStatusCodesFailed       = errors.New(MsgGetStatusCodesFailed)
	ErrSendPrintJobFailed         = errors.New(MsgSendPrintJobFailed)
	ErrRenderChartFailed          = errors.New(MsgRenderChartFailed)
	ErrLongPollSubscriptionFailed = errors.New(MsgLongPollSubscriptionFailed)
)

const (
	ApiStartMsg           = "API server qcgraph has been started"
	ApiEndedGracefullyMsg = "API server qcgraph ended gracefully"
	ApiFailedToStartMsg   = "Failed to start API server qcgraph"

	InvalidBodyInRequest   = "can't not bind request body!"
	InvalidQueryParams     = "invalid query params"
	InvalidIdParameterMsg  = "invalid id parameter"
	InvalidDeviceParameter = "invalid device parameter"

	MsgInvalidStatisticalBasis = "invalid statistical basis: SD must be positive and all values finite"
	MsgPermissionDenied        = "permission denied"
	MsgRefreshSuperseded       = "refresh superseded by a newer request"
	MsgUnknownEvent            = "unknown event"
	MsgInvalidEventPayload     = "invalid event payload"
	MsgInvalidLevelSlot        = "invalid level slot"
	MsgResultNotFound          = "qc result not found"
	MsgQcDocNotFound           = "qc document not found"
	MsgEmptyQcDocID            = "empty qc document id"
	MsgMissingAssayInfo        = "missing assay info"
	MsgResultNotOutOfControl   = "qc result is not out of control"
	MsgInvalidXAxisMode        = "invalid x axis mode"
	MsgInvalidDateRange        = "date range end is before start"
	MsgNoExportSink            = "no export sink configured"
	MsgPageNotFound            = "chart page not found"

	MsgQueryQcDocsFailed          = "query qc documents failed"
	MsgQueryQcResultsFailed       = "query qc results failed"
	MsgQueryYoudenResultsFailed   = "query youden qc results failed"
	MsgUpdateTargetFailed         = "update qc target value and SD failed"
	MsgUpdateCalculatedFailed     = "update qc calculated flag failed"
	MsgUpdateDispositionFailed    = "update out of control reason and solution failed"
	MsgGetAssayInfoFailed         = "get assay info failed"
	MsgGetStatusCodesFailed       = "get status codes failed"
	MsgSendPrintJobFailed         = "send print job failed"
	MsgRenderChartFailed          = "render chart failed"
	MsgLongPollSubscriptionFailed = "qc result long poll subscription failed"
)
