package qcgraph

import (
	"context"
	"errors"
	"sync"

	"github.com/blutspende/qcgraph/middleware"
	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/blutspende/qcgraph/oplog/service"
	"github.com/google/uuid"
)

var errLogicUnavailable = errors.New("logic service unavailable")

type logicControlClientMock struct {
	mutex sync.Mutex

	docs          []QcDocInfo
	results       map[string][]QcResult
	youdenResults []TwinQcResult
	assays        map[string]AssayInfo
	statusCodes   map[QcState]string
	failQueries   bool
	failUpdates   bool

	queryResultsFunc func(ctx context.Context, cond QcResultQueryCond) ([]QcResult, error)

	docQueries        int
	youdenQueries     int
	resultQueries     []QcResultQueryCond
	statusCodeQueries int
	calcUpdates       map[int64]bool
	dispositions      map[int64][2]string
	targetUpdates     []QcDocInfo
}

func newLogicControlClientMock() *logicControlClientMock {
	return &logicControlClientMock{
		results:      make(map[string][]QcResult),
		assays:       make(map[string]AssayInfo),
		calcUpdates:  make(map[int64]bool),
		dispositions: make(map[int64][2]string),
	}
}

func (m *logicControlClientMock) QueryQcDocConcInfo(ctx context.Context, cond QcDocQueryCond) ([]QcDocInfo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.docQueries++
	if m.failQueries {
		return nil, errLogicUnavailable
	}
	return m.docs, nil
}

func (m *logicControlClientMock) QueryQcRltInfo(ctx context.Context, cond QcResultQueryCond) ([]QcResult, error) {
	m.mutex.Lock()
	m.resultQueries = append(m.resultQueries, cond)
	queryResultsFunc := m.queryResultsFunc
	failQueries := m.failQueries
	results := m.results[cond.QcDocID]
	m.mutex.Unlock()

	if queryResultsFunc != nil {
		return queryResultsFunc(ctx, cond)
	}
	if failQueries {
		return nil, errLogicUnavailable
	}
	return results, nil
}

func (m *logicControlClientMock) QueryQcYoudenRltInfo(ctx context.Context, cond QcResultQueryCond) ([]TwinQcResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.youdenQueries++
	if m.failQueries {
		return nil, errLogicUnavailable
	}
	return m.youdenResults, nil
}

func (m *logicControlClientMock) UpdateQcTargetValSD(ctx context.Context, doc QcDocInfo, assayName string) (QcDocInfo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failUpdates {
		return QcDocInfo{}, errLogicUnavailable
	}
	m.targetUpdates = append(m.targetUpdates, doc)
	return doc, nil
}

func (m *logicControlClientMock) UpdateQcCalcPoint(ctx context.Context, result QcResult, included bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failUpdates {
		return errLogicUnavailable
	}
	m.calcUpdates[result.ID] = included
	return nil
}

func (m *logicControlClientMock) UpdateQcOutCtrlReasonAndSolution(ctx context.Context, result QcResult, reason, solution string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failUpdates {
		return errLogicUnavailable
	}
	m.dispositions[result.ID] = [2]string{reason, solution}
	return nil
}

func (m *logicControlClientMock) GetAssayInfo(ctx context.Context, assayName string) (AssayInfo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	assayInfo, ok := m.assays[assayName]
	if !ok {
		return AssayInfo{}, errLogicUnavailable
	}
	return assayInfo, nil
}

func (m *logicControlClientMock) GetStatusCodes(ctx context.Context) (map[QcState]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.statusCodeQueries++
	if m.statusCodes == nil {
		return nil, errLogicUnavailable
	}
	return m.statusCodes, nil
}

func (m *logicControlClientMock) calcUpdateCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.calcUpdates)
}

type permissionLookupMock struct {
	granted map[Permission]bool
}

func (m *permissionLookupMock) HasPermission(ctx context.Context, permission Permission) bool {
	return m.granted[permission]
}

type operationLogServiceMock struct {
	mutex     sync.Mutex
	succeeded []service.Entry
	failed    []service.Entry
	denied    []service.Entry
	logs      []model.OperationLogDTO
}

func (m *operationLogServiceMock) Succeeded(entry service.Entry) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.succeeded = append(m.succeeded, entry)
}

func (m *operationLogServiceMock) Failed(entry service.Entry, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failed = append(m.failed, entry)
}

func (m *operationLogServiceMock) Denied(entry service.Entry) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.denied = append(m.denied, entry)
}

func (m *operationLogServiceMock) GetOperationLogs(deviceID uuid.UUID) []model.OperationLogDTO {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]model.OperationLogDTO{}, m.logs...)
}

type exportSinkMock struct {
	mutex   sync.Mutex
	records []ExportRecord
	err     error
}

func (m *exportSinkMock) Export(ctx context.Context, record ExportRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

type rendererMock struct{}

func (rendererMock) RenderLJ(chart LJChart, title string) ([]byte, error) {
	return []byte("lj:" + title), nil
}

func (rendererMock) RenderYouden(chart YoudenChart, title string) ([]byte, error) {
	return []byte("youden:" + title), nil
}

func testUser() middleware.UserToken {
	return middleware.UserToken{
		PreferredUsername: "lab.head",
		Email:             "lab.head@bloodlab.org",
		RealmAccess:       middleware.RealmAccess{Roles: []middleware.UserRole{middleware.MedLabHead}},
	}
}
