package qcgraph

import (
	"net/http"
	"sort"
	"strings"

	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/blutspende/qcgraph/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GetOperationLogs returns the recorded QC operations of a device, newest first
// @Summary Get operation logs
// @Tags OperationLogs
// @Produce json
// @Param deviceId path string true "Device ID"
// @Param filter query Filter false "Time, text and page filter"
// @Success 200 {object} PagedResponse
// @Router /v1/operation-logs/{deviceId} [GET]
func (api *api) GetOperationLogs(c *gin.Context) {
	deviceID, err := uuid.Parse(c.Param("deviceId"))
	if err != nil {
		log.Error().Err(err).Str("deviceId", c.Param("deviceId")).Msg(InvalidDeviceParameter)
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: InvalidDeviceParameter})
		return
	}

	var filter Filter
	if err = c.ShouldBindQuery(&filter); err != nil || filter.Pageable.PageSize < 0 || filter.Pageable.Page < 0 {
		log.Error().Err(err).Msg(InvalidQueryParams)
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: InvalidQueryParams})
		return
	}

	operationLogs := filterOperationLogs(api.operationLogService.GetOperationLogs(deviceID), filter)
	c.JSON(http.StatusOK, NewPagedResponse(filter.Pageable, len(operationLogs), paginate(filter.Pageable, operationLogs)))
}

// filterOperationLogs expects the logs newest first.
func filterOperationLogs(operationLogs []model.OperationLogDTO, filter Filter) []model.OperationLogDTO {
	filtered := utils.Filter(operationLogs, func(operationLog model.OperationLogDTO) bool {
		if filter.TimeFrom != nil && operationLog.CreatedAt.Before(*filter.TimeFrom) {
			return false
		}
		if filter.Filter == nil || *filter.Filter == "" {
			return true
		}
		term := strings.ToLower(*filter.Filter)
		for _, field := range []string{operationLog.UserName, operationLog.AssayName, operationLog.TargetID, operationLog.Message, string(operationLog.Operation)} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	})
	if filter.Pageable.Direction == SortAsc {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}
	return filtered
}

func (api *api) GetAssays(c *gin.Context) {
	assays := api.assayCache.GetAll()
	sort.Slice(assays, func(i, j int) bool {
		return assays[i].AssayName < assays[j].AssayName
	})
	c.JSON(http.StatusOK, assays)
}

func (api *api) InvalidateAssayCache(c *gin.Context) {
	api.assayCache.Invalidate()
	log.Info().Msg("assay cache invalidated")
	c.Status(http.StatusNoContent)
}
