package qcgraph

import (
	"bytes"
	"net/http"
	"strconv"
	"sync"

	"github.com/blutspende/qcgraph/server"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const PageViewEventName = "page-view"

type pageKindTO string

const (
	pageKindLJ     pageKindTO = "LJ"
	pageKindYouden pageKindTO = "YOUDEN"
)

type createPageTO struct {
	Kind pageKindTO `json:"kind" binding:"required,oneof=LJ YOUDEN"`
	Mode XAxisMode  `json:"mode"`
	// Events are applied in order right after the page is created.
	Events []EventTO `json:"events"`
}

type pageInfoTO struct {
	ID        uuid.UUID      `json:"id"`
	Kind      pageKindTO     `json:"kind"`
	Device    DeviceIdentity `json:"device"`
	AssayName string         `json:"assayName"`
}

type toggleCalculatedTO struct {
	Calculated *bool `json:"calculated" binding:"required"`
}

type dispositionTO struct {
	Reason   string `json:"reason"`
	Solution string `json:"solution"`
}

type targetValueTO struct {
	TargetValue *float64 `json:"targetValue" binding:"required"`
	SD          *float64 `json:"sd" binding:"required"`
}

// PageViewUpdate is streamed to the SSE subscribers of a page.
type PageViewUpdate struct {
	PageID uuid.UUID   `json:"pageId"`
	View   interface{} `json:"view"`
}

func pageViewTopic(update PageViewUpdate) string {
	return update.PageID.String()
}

// pageViewBroadcaster forwards every published page view to the SSE server.
type pageViewBroadcaster struct {
	sseServer     *server.SSEServer[PageViewUpdate]
	mutex         sync.Mutex
	unsubscribers map[uuid.UUID]func()
}

func newPageViewBroadcaster(sseServer *server.SSEServer[PageViewUpdate]) PageListener {
	return &pageViewBroadcaster{
		sseServer:     sseServer,
		unsubscribers: make(map[uuid.UUID]func()),
	}
}

func (b *pageViewBroadcaster) ProcessPageEvent(page Page, event pageEventType) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	pageID := page.ID()
	if event.IsOneOf(PageCreatedEvent) {
		b.unsubscribers[pageID] = page.SubscribeSnapshots(func(view interface{}) {
			b.sseServer.Send(PageViewUpdate{PageID: pageID, View: view})
		})
		return
	}
	if unsubscribe, ok := b.unsubscribers[pageID]; ok {
		unsubscribe()
		delete(b.unsubscribers, pageID)
	}
}

func kindOfPage(page Page) pageKindTO {
	if page.Kind() == ChartYouden {
		return pageKindYouden
	}
	return pageKindLJ
}

func (api *api) pageFromParam(c *gin.Context) (Page, bool) {
	pageID, err := uuid.Parse(c.Param("pageId"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: InvalidIdParameterMsg})
		return nil, false
	}
	page, ok := api.pageManager.GetPage(pageID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, clientError{MessageKey: keyPageNotFound, Message: MsgPageNotFound})
		return nil, false
	}
	return page, true
}

// abortWithOperationError maps page errors to status codes.
func abortWithOperationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		c.AbortWithStatusJSON(http.StatusForbidden, clientError{MessageKey: keyPermissionDenied, Message: err.Error()})
	case errors.Is(err, ErrResultNotFound), errors.Is(err, ErrQcDocNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, clientError{MessageKey: keyResultNotFound, Message: err.Error()})
	case errors.Is(err, ErrUnknownEvent), errors.Is(err, ErrInvalidLevelSlot), errors.Is(err, ErrInvalidXAxisMode),
		errors.Is(err, ErrInvalidDateRange), errors.Is(err, ErrInvalidStatisticalBasis), errors.Is(err, ErrResultNotOutOfControl),
		errors.Is(err, ErrInvalidEventPayload):
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("qc operation failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, clientError{MessageKey: keyOperationFailed, Message: err.Error()})
	}
}

// CreatePage opens a new LJ or Youden chart page
// @Summary Create chart page
// @Tags Pages
// @Accept json
// @Produce json
// @Param body body createPageTO true "Page kind and initial events"
// @Success 201 {object} LJView
// @Router /v1/pages [POST]
func (api *api) CreatePage(c *gin.Context) {
	var to createPageTO
	if err := c.ShouldBindJSON(&to); err != nil {
		log.Error().Err(err).Msg(InvalidBodyInRequest)
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: InvalidBodyInRequest})
		return
	}

	kind := ChartYouden
	if to.Kind == pageKindLJ {
		kind = to.Mode.ChartKind()
	}
	page := api.pageManager.CreatePage(kind)

	ctx := requestContext(c)
	for _, eventTO := range to.Events {
		event, err := DecodeEvent(eventTO)
		if err == nil {
			err = page.Dispatch(ctx, event)
		}
		if err != nil {
			_ = api.pageManager.ClosePage(page.ID())
			abortWithOperationError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, page.Snapshot())
}

func (api *api) GetPages(c *gin.Context) {
	pages := api.pageManager.GetPages()
	pageInfoTOs := make([]pageInfoTO, len(pages))
	for i, page := range pages {
		pageInfoTOs[i] = pageInfoTO{
			ID:        page.ID(),
			Kind:      kindOfPage(page),
			Device:    page.Device(),
			AssayName: page.AssayName(),
		}
	}
	c.JSON(http.StatusOK, pageInfoTOs)
}

func (api *api) GetPage(c *gin.Context) {
	page, ok := api.pageFromParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, page.Snapshot())
}

func (api *api) DeletePage(c *gin.Context) {
	page, ok := api.pageFromParam(c)
	if !ok {
		return
	}
	if err := api.pageManager.ClosePage(page.ID()); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, clientError{MessageKey: keyPageNotFound, Message: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// DispatchPageEvent feeds one event into a page. Data loads triggered by the event run
// in the background, their result is streamed to the page subscribers.
// @Summary Dispatch page event
// @Tags Pages
// @Accept json
// @Produce json
// @Param pageId path string true "Page ID"
// @Param body body EventTO true "Event"
// @Success 200 {object} LJView
// @Router /v1/pages/{pageId}/events [POST]
func (api *api) DispatchPageEvent(c *gin.Context) {
	page, ok := api.pageFromParam(c)
	if !ok {
		return
	}

	var eventTO EventTO
	if err := c.ShouldBindJSON(&eventTO); err != nil {
		log.Error().Err(err).Msg(InvalidBodyInRequest)
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: InvalidBodyInRequest})
		return
	}
	event, err := DecodeEvent(eventTO)
	if err != nil {
		abortWithOperationError(c, err)
		return
	}
	if err = page.Dispatch(requestContext(c), event); err != nil {
		abortWithOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, page.Snapshot())
}

func (api *api) GetChartPNG(c *gin.Context) {
	page, ok := api.pageFromParam(c)
	if !ok {
		return
	}
	png, err := page.RenderPNG()
	if err != nil {
		log.Error().Err(err).Str("pageId", page.ID().String()).Msg(MsgRenderChartFailed)
		c.AbortWithStatusJSON(http.StatusInternalServerError, clientError{MessageKey: keyInternalServerError, Message: MsgRenderChartFailed})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (api *api) GetChartHTML(c *gin.Context) {
	page, ok := api.pageFromParam(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := page.RenderHTML(&buf); err != nil {
		log.Error().Err(err).Str("pageId", page.ID().String()).Msg(MsgRenderChartFailed)
		c.AbortWithStatusJSON(http.StatusInternalServerError, clientError{MessageKey: keyInternalServerError, Message: MsgRenderChartFailed})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (api *api) PrintPage(c *gin.Context) {
	page, ok := api.pageFromParam(c)
	if !ok {
		return
	}
	if err := page.Print(requestContext(c)); err != nil {
		abortWithOperationError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func resultIDFromParam(c *gin.Context) (int64, bool) {
	resultID, err := strconv.ParseInt(c.Param("resultId"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: InvalidIdParameterMsg})
		return 0, false
	}
	return resultID, true
}

func (api *api) ToggleCalculated(c *gin.Context) {
	page, ok := api.pageFromParam(c)
	if !ok {
		return
	}
	resultID, ok := resultIDFromParam(c)
	if !ok {
		return
	}
	var to toggleCalculatedTO
	if err := c.ShouldBindJSON(&to); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: InvalidBodyInRequest})
		return
	}

	if err := page.ToggleCalculated(requestContext(c), resultID, *to.Calculated); err != nil {
		abortWithOperationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *api) SaveOutOfControlDisposition(c *gin.Context) {
	page, ok := api.pageFromParam(c)
	if !ok {
		return
	}
	resultID, ok := resultIDFromParam(c)
	if !ok {
		return
	}
	var to dispositionTO
	if err := c.ShouldBindJSON(&to); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: InvalidBodyInRequest})
		return
	}

	if err := page.SaveOutOfControlDisposition(requestContext(c), resultID, to.Reason, to.Solution); err != nil {
		abortWithOperationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *api) UpdateTargetValue(c *gin.Context) {
	page, ok := api.pageFromParam(c)
	if !ok {
		return
	}
	ljPage, ok := page.(*LJPage)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: "target values can only be set on LJ pages"})
		return
	}
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: MsgInvalidLevelSlot})
		return
	}
	var to targetValueTO
	if err = c.ShouldBindJSON(&to); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, clientError{MessageKey: keyBadRequest, Message: InvalidBodyInRequest})
		return
	}

	if err = ljPage.UpdateTargetValue(requestContext(c), LevelSlot(slot), *to.TargetValue, *to.SD); err != nil {
		abortWithOperationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
