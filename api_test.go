package qcgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/blutspende/qcgraph/config"
	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/blutspende/qcgraph/server"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiTestRig struct {
	engine       *gin.Engine
	pageManager  PageManager
	client       *logicControlClientMock
	assayCache   AssayCache
	operationLog *operationLogServiceMock
}

func newAPITestRig(t *testing.T, client *logicControlClientMock) apiTestRig {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	configuration := &config.Configuration{
		APIPort:               8080,
		Authorization:         false,
		PermittedOrigin:       "*",
		LogLevel:              zerolog.InfoLevel,
		RequestTimeoutSeconds: 5,
	}
	assayCache := NewAssayCache(client, nil, time.Minute)
	deps := newTestDeps(client)
	deps.Assays = assayCache
	deps.Export = &exportSinkMock{}
	pageManager := NewPageManager(ctx, deps)
	t.Cleanup(pageManager.Close)

	operationLog := &operationLogServiceMock{}
	engine := gin.New()
	newAPI(ctx, engine, configuration, nil, pageManager, assayCache, operationLog, nil)
	return apiTestRig{engine: engine, pageManager: pageManager, client: client, assayCache: assayCache, operationLog: operationLog}
}

func (r apiTestRig) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	r.engine.ServeHTTP(recorder, request)
	return recorder
}

func (r apiTestRig) createLoadedLJPage(t *testing.T) uuid.UUID {
	body := `{"kind":"LJ","mode":"DAY","events":[
		{"type":"DEVICE_CHANGED","payload":{"device":{"deviceId":"0c3c7a9e-8f0e-4e55-9d8a-6f6a1d2b7c11","name":"AU5800"}}},
		{"type":"ASSAY_CHANGED","payload":{"assayName":"GLU"}}
	]}`
	response := r.do(http.MethodPost, "/v1/pages", body)
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())

	pages := r.pageManager.GetPages()
	require.Len(t, pages, 1)
	pages[0].Wait()
	return pages[0].ID()
}

func TestCreatePageAppliesInitialEvents(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())

	pageID := rig.createLoadedLJPage(t)

	response := rig.do(http.MethodGet, "/v1/pages/"+pageID.String(), "")
	require.Equal(t, http.StatusOK, response.Code)
	var view LJView
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &view))
	assert.Equal(t, "GLU", view.Settings.AssayName)
	assert.Equal(t, "doc-1", view.Settings.QcDocIDs[0])
	assert.Len(t, view.Tables[0], 3)

	response = rig.do(http.MethodGet, "/v1/pages", "")
	require.Equal(t, http.StatusOK, response.Code)
	var pages []pageInfoTO
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &pages))
	require.Len(t, pages, 1)
	assert.Equal(t, pageKindLJ, pages[0].Kind)
	assert.Equal(t, "AU5800", pages[0].Device.Name)
}

func TestCreatePageClosesPageOnFailingEvent(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())

	response := rig.do(http.MethodPost, "/v1/pages", `{"kind":"YOUDEN","events":[{"type":"ZOOM_CHANGED"}]}`)

	assert.Equal(t, http.StatusBadRequest, response.Code)
	assert.Empty(t, rig.pageManager.GetPages())
}

func TestCreatePageRejectsUnknownKind(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())

	response := rig.do(http.MethodPost, "/v1/pages", `{"kind":"PIE"}`)

	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestDispatchPageEvent(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())
	pageID := rig.createLoadedLJPage(t)
	path := "/v1/pages/" + pageID.String() + "/events"

	response := rig.do(http.MethodPost, path, `{"type":"TABLE_ROW_SELECTED","payload":{"slot":1,"row":1}}`)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())
	var view LJView
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &view))
	assert.Equal(t, int64(2), view.Selection.ResultID)

	response = rig.do(http.MethodPost, path, `{"type":"QC_DOC_CHANGED","payload":{"slot":7,"qcDocId":"doc-1"}}`)
	assert.Equal(t, http.StatusBadRequest, response.Code)

	response = rig.do(http.MethodPost, path, `{"type":"TABLE_ROW_SELECTED","payload":{"row":"first"}}`)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestPageNotFoundAndInvalidID(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())

	assert.Equal(t, http.StatusNotFound, rig.do(http.MethodGet, "/v1/pages/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, rig.do(http.MethodGet, "/v1/pages/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusNotFound, rig.do(http.MethodDelete, "/v1/pages/"+uuid.NewString(), "").Code)
}

func TestDeletePage(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())
	pageID := rig.createLoadedLJPage(t)

	assert.Equal(t, http.StatusNoContent, rig.do(http.MethodDelete, "/v1/pages/"+pageID.String(), "").Code)
	assert.Empty(t, rig.pageManager.GetPages())
}

func TestGetChartPNGAndHTML(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())
	pageID := rig.createLoadedLJPage(t)

	response := rig.do(http.MethodGet, "/v1/pages/"+pageID.String()+"/chart.png", "")
	require.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "image/png", response.Header().Get("Content-Type"))
	assert.Equal(t, "lj:Levey-Jennings GLU - AU5800", response.Body.String())

	response = rig.do(http.MethodGet, "/v1/pages/"+pageID.String()+"/chart.html", "")
	require.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), "Levey-Jennings GLU")
}

func TestToggleCalculatedAndDisposition(t *testing.T) {
	client := ljFixture()
	rig := newAPITestRig(t, client)
	pageID := rig.createLoadedLJPage(t)
	base := "/v1/pages/" + pageID.String() + "/results/"

	assert.Equal(t, http.StatusNoContent, rig.do(http.MethodPut, base+"2/calculated", `{"calculated":false}`).Code)
	assert.Equal(t, http.StatusBadRequest, rig.do(http.MethodPut, base+"2/calculated", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, rig.do(http.MethodPut, base+"two/calculated", `{"calculated":false}`).Code)
	assert.Equal(t, http.StatusNotFound, rig.do(http.MethodPut, base+"999/calculated", `{"calculated":false}`).Code)

	assert.Equal(t, http.StatusNoContent, rig.do(http.MethodPut, base+"3/out-of-control", `{"reason":"lot expired","solution":"new lot"}`).Code)
	assert.Equal(t, http.StatusBadRequest, rig.do(http.MethodPut, base+"1/out-of-control", `{"reason":"r","solution":"s"}`).Code)

	client.mutex.Lock()
	defer client.mutex.Unlock()
	assert.Equal(t, false, client.calcUpdates[2])
	assert.Equal(t, [2]string{"lot expired", "new lot"}, client.dispositions[3])
}

func TestUpdateTargetValue(t *testing.T) {
	client := ljFixture()
	rig := newAPITestRig(t, client)
	pageID := rig.createLoadedLJPage(t)
	path := "/v1/pages/" + pageID.String() + "/levels/1/target"

	assert.Equal(t, http.StatusNoContent, rig.do(http.MethodPut, path, `{"targetValue":11,"sd":2.2}`).Code)
	assert.Equal(t, http.StatusBadRequest, rig.do(http.MethodPut, path, `{"targetValue":11}`).Code)

	youden := rig.pageManager.CreatePage(ChartYouden)
	response := rig.do(http.MethodPut, "/v1/pages/"+youden.ID().String()+"/levels/1/target", `{"targetValue":11,"sd":2.2}`)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestPrintPage(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())
	pageID := rig.createLoadedLJPage(t)

	assert.Equal(t, http.StatusAccepted, rig.do(http.MethodPost, "/v1/pages/"+pageID.String()+"/print", "").Code)
}

func TestGetAssaysSortedByName(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())
	rig.assayCache.Set([]AssayInfo{{AssayName: "TP"}, {AssayName: "ALB"}, {AssayName: "GLU"}})

	response := rig.do(http.MethodGet, "/v1/assays", "")

	require.Equal(t, http.StatusOK, response.Code)
	var assays []AssayInfo
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &assays))
	require.Len(t, assays, 3)
	assert.Equal(t, "ALB", assays[0].AssayName)
	assert.Equal(t, "TP", assays[2].AssayName)

	assert.Equal(t, http.StatusNoContent, rig.do(http.MethodDelete, "/v1/assays/cache", "").Code)
	assert.Empty(t, rig.assayCache.GetAll())
}

func TestGetOperationLogs(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())
	deviceID := uuid.New()
	createdAt := day(2024, 6, 3, 12)
	for i := 0; i < 5; i++ {
		rig.operationLog.logs = append(rig.operationLog.logs, model.OperationLogDTO{
			ID:        uuid.New(),
			DeviceID:  deviceID,
			CreatedAt: createdAt.Add(-time.Duration(i) * time.Hour),
			Operation: model.OperationToggleCalculated,
			UserName:  "lab.head",
			AssayName: []string{"GLU", "TP"}[i%2],
			TargetID:  strconv.Itoa(i),
		})
	}
	path := "/v1/operation-logs/" + deviceID.String()

	response := rig.do(http.MethodGet, path+"?pageSize=2&page=1", "")
	require.Equal(t, http.StatusOK, response.Code)
	var paged struct {
		Items      []model.OperationLogDTO `json:"content"`
		TotalCount int                     `json:"totalCount"`
		TotalPages int                     `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &paged))
	assert.Equal(t, 5, paged.TotalCount)
	assert.Equal(t, 3, paged.TotalPages)
	require.Len(t, paged.Items, 2)
	assert.Equal(t, "2", paged.Items[0].TargetID)

	response = rig.do(http.MethodGet, path+"?filter=tp&direction=asc", "")
	require.Equal(t, http.StatusOK, response.Code)
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &paged))
	require.Len(t, paged.Items, 2)
	assert.Equal(t, "3", paged.Items[0].TargetID)
	assert.Equal(t, "1", paged.Items[1].TargetID)

	assert.Equal(t, http.StatusBadRequest, rig.do(http.MethodGet, path+"?pageSize=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, rig.do(http.MethodGet, "/v1/operation-logs/AU5800", "").Code)
}

func TestGetHealth(t *testing.T) {
	rig := newAPITestRig(t, ljFixture())
	rig.pageManager.CreatePage(ChartYouden)

	response := rig.do(http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, response.Code)
	var health healthCheck
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &health))
	assert.Equal(t, ServiceName, health.Service)
	assert.Equal(t, 1, health.OpenPages)
	assert.Equal(t, []string{"v1"}, health.ApiVersion)
}

func TestPageViewBroadcasterTracksPageLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page := NewYoudenPage(ctx, newTestDeps(youdenFixture()))
	defer page.Close()

	broadcaster := newPageViewBroadcaster(server.NewSSEServer[PageViewUpdate](ctx, "pageId", PageViewEventName, pageViewTopic, nil)).(*pageViewBroadcaster)

	broadcaster.ProcessPageEvent(page, PageCreatedEvent)
	assert.Len(t, broadcaster.unsubscribers, 1)

	broadcaster.ProcessPageEvent(page, PageClosedEvent)
	assert.Empty(t, broadcaster.unsubscribers)
}
