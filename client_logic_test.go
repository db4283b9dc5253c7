package qcgraph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogicServer(t *testing.T, handler http.HandlerFunc) LogicControlClient {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewLogicControlClient(server.URL+"/", resty.New())
	require.NoError(t, err)
	return client
}

func TestNewLogicControlClientRequiresUrl(t *testing.T) {
	_, err := NewLogicControlClient("", resty.New())
	assert.Error(t, err)
}

func TestQueryQcRltInfo(t *testing.T) {
	var received QcResultQueryCond
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/qc/results/query", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":7,"qcDocId":"doc-1","result":10.5,"targetValue":10,"sd":0.5,"calculated":true,"state":3,"qcNo":"101","level":"1"}]`))
	})

	results, err := client.QueryQcRltInfo(context.Background(), QcResultQueryCond{AssayName: "GLU", QcDocID: "doc-1"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(7), results[0].ID)
	assert.Equal(t, QcStateOutOfControl, results[0].State)
	assert.Equal(t, "101", results[0].QcNo)
	assert.Equal(t, "doc-1", received.QcDocID)
}

func TestQueryQcYoudenRltInfo(t *testing.T) {
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/qc/youden-results/query", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"unionIndex":4,"isX":true,"calculated":true},{"id":2,"unionIndex":4,"isX":false,"calculated":true}]`))
	})

	results, err := client.QueryQcYoudenRltInfo(context.Background(), QcResultQueryCond{AssayName: "NA"})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].IsX)
	assert.Equal(t, 4, results[1].UnionIndex)
}

func TestLogicErrorResponseIsWrapped(t *testing.T) {
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"QC-17","message":"qc document locked"}`))
	})

	_, err := client.QueryQcDocConcInfo(context.Background(), QcDocQueryCond{AssayName: "GLU"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgQueryQcDocsFailed)
	assert.Contains(t, err.Error(), "qc document locked(QC-17)")
}

func TestLogicUnexpectedStatusWithoutBody(t *testing.T) {
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.UpdateQcCalcPoint(context.Background(), QcResult{ID: 3}, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response from logic service 502")
}

func TestUpdateQcCalcPoint(t *testing.T) {
	var received updateCalculatedTO
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/qc/results/42/calculated", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusNoContent)
	})

	received.Calculated = true
	require.NoError(t, client.UpdateQcCalcPoint(context.Background(), QcResult{ID: 42}, false))
	assert.False(t, received.Calculated)
}

func TestUpdateQcOutCtrlReasonAndSolution(t *testing.T) {
	var received updateOutOfControlTO
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/qc/results/9/out-of-control", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.UpdateQcOutCtrlReasonAndSolution(context.Background(), QcResult{ID: 9}, "lot expired", "new lot"))
	assert.Equal(t, updateOutOfControlTO{Reason: "lot expired", Solution: "new lot"}, received)
}

func TestUpdateQcTargetValSD(t *testing.T) {
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/qc/docs/doc-1/target", r.URL.Path)
		var to updateTargetTO
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &to)
		assert.Equal(t, "GLU", to.AssayName)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(to.QcDoc)
	})

	updated, err := client.UpdateQcTargetValSD(context.Background(), QcDocInfo{ID: "doc-1", TargetValue: 5, SD: 0.25}, "GLU")

	require.NoError(t, err)
	assert.Equal(t, 0.25, updated.SD)
}

func TestUpdateQcTargetValSDEscapesDocID(t *testing.T) {
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/qc/docs/lot%2F7%20a/target", r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"lot/7 a"}`))
	})

	_, err := client.UpdateQcTargetValSD(context.Background(), QcDocInfo{ID: "lot/7 a"}, "GLU")

	require.NoError(t, err)
}

func TestGetAssayInfoAndStatusCodes(t *testing.T) {
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/assays/GLU":
			_, _ = w.Write([]byte(`{"assayName":"GLU","precision":1,"unit":"mg/dl","deviceClassify":2}`))
		case "/v1/status-codes":
			_, _ = w.Write([]byte(`[{"state":2,"text":"Warnung"},{"state":3,"text":"Außer Kontrolle"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	assayInfo, err := client.GetAssayInfo(context.Background(), "GLU")
	require.NoError(t, err)
	assert.Equal(t, DeviceClassifyChemistry, assayInfo.DeviceClassify)
	assert.Equal(t, 1, assayInfo.Precision)

	statusCodes, err := client.GetStatusCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[QcState]string{QcStateWarning: "Warnung", QcStateOutOfControl: "Außer Kontrolle"}, statusCodes)
}

func TestQcResultFetcherReturnsEmptyOnFailure(t *testing.T) {
	client := newLogicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	fetcher := NewQcResultFetcher(client)
	ctx := context.Background()

	assert.Equal(t, []QcDocInfo{}, fetcher.FetchQcDocs(ctx, QcDocQueryCond{AssayName: "GLU"}))
	assert.Equal(t, []QcResult{}, fetcher.FetchQcResults(ctx, QcResultQueryCond{AssayName: "GLU", QcDocID: "doc-1"}))
	assert.Equal(t, []TwinQcResult{}, fetcher.FetchYoudenResults(ctx, QcResultQueryCond{AssayName: "NA"}))
}

func TestQcResultFetcherSkipsEmptyQcDoc(t *testing.T) {
	client := newLogicControlClientMock()
	fetcher := NewQcResultFetcher(client)

	assert.Empty(t, fetcher.FetchQcResults(context.Background(), QcResultQueryCond{AssayName: "GLU"}))
	assert.Empty(t, client.resultQueries)
}
