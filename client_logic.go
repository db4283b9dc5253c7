package qcgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LogicControlClient is the remote control/logic service that owns QC data.
type LogicControlClient interface {
	QueryQcDocConcInfo(ctx context.Context, cond QcDocQueryCond) ([]QcDocInfo, error)
	QueryQcRltInfo(ctx context.Context, cond QcResultQueryCond) ([]QcResult, error)
	QueryQcYoudenRltInfo(ctx context.Context, cond QcResultQueryCond) ([]TwinQcResult, error)
	UpdateQcTargetValSD(ctx context.Context, doc QcDocInfo, assayName string) (QcDocInfo, error)
	UpdateQcCalcPoint(ctx context.Context, result QcResult, included bool) error
	UpdateQcOutCtrlReasonAndSolution(ctx context.Context, result QcResult, reason, solution string) error
	GetAssayInfo(ctx context.Context, assayName string) (AssayInfo, error)
	GetStatusCodes(ctx context.Context) (map[QcState]string, error)
}

type logicControlClient struct {
	client   *resty.Client
	logicUrl string
}

type errorResponseTO struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

type updateTargetTO struct {
	AssayName string    `json:"assayName"`
	QcDoc     QcDocInfo `json:"qcDoc"`
}

type updateCalculatedTO struct {
	Calculated bool `json:"calculated"`
}

type updateOutOfControlTO struct {
	Reason   string `json:"reason"`
	Solution string `json:"solution"`
}

type statusCodeTO struct {
	State QcState `json:"state"`
	Text  string  `json:"text"`
}

func NewLogicControlClient(logicUrl string, restyClient *resty.Client) (LogicControlClient, error) {
	if logicUrl == "" {
		return nil, fmt.Errorf("basepath for the logic service must be set. check your configuration for LogicURL")
	}

	return &logicControlClient{
		client:   restyClient,
		logicUrl: strings.TrimRight(logicUrl, "/"),
	}, nil
}

func (l *logicControlClient) QueryQcDocConcInfo(ctx context.Context, cond QcDocQueryCond) ([]QcDocInfo, error) {
	docs := make([]QcDocInfo, 0)
	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(cond).
		SetResult(&docs).
		Post(l.logicUrl + "/v1/qc/docs/query")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return nil, errors.Wrap(err, MsgQueryQcDocsFailed)
	}
	return docs, nil
}

func (l *logicControlClient) QueryQcRltInfo(ctx context.Context, cond QcResultQueryCond) ([]QcResult, error) {
	results := make([]QcResult, 0)
	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(cond).
		SetResult(&results).
		Post(l.logicUrl + "/v1/qc/results/query")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return nil, errors.Wrap(err, MsgQueryQcResultsFailed)
	}
	return results, nil
}

func (l *logicControlClient) QueryQcYoudenRltInfo(ctx context.Context, cond QcResultQueryCond) ([]TwinQcResult, error) {
	results := make([]TwinQcResult, 0)
	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(cond).
		SetResult(&results).
		Post(l.logicUrl + "/v1/qc/youden-results/query")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return nil, errors.Wrap(err, MsgQueryYoudenResultsFailed)
	}
	return results, nil
}

func (l *logicControlClient) UpdateQcTargetValSD(ctx context.Context, doc QcDocInfo, assayName string) (QcDocInfo, error) {
	var updated QcDocInfo
	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetPathParam("qcDocId", doc.ID).
		SetBody(updateTargetTO{AssayName: assayName, QcDoc: doc}).
		SetResult(&updated).
		Put(l.logicUrl + "/v1/qc/docs/{qcDocId}/target")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return QcDocInfo{}, errors.Wrap(err, MsgUpdateTargetFailed)
	}
	return updated, nil
}

func (l *logicControlClient) UpdateQcCalcPoint(ctx context.Context, result QcResult, included bool) error {
	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(updateCalculatedTO{Calculated: included}).
		Put(l.logicUrl + "/v1/qc/results/" + strconv.FormatInt(result.ID, 10) + "/calculated")
	if err := checkResponse(resp, err, http.StatusNoContent, http.StatusOK); err != nil {
		return errors.Wrap(err, MsgUpdateCalculatedFailed)
	}
	return nil
}

func (l *logicControlClient) UpdateQcOutCtrlReasonAndSolution(ctx context.Context, result QcResult, reason, solution string) error {
	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(updateOutOfControlTO{Reason: reason, Solution: solution}).
		Put(l.logicUrl + "/v1/qc/results/" + strconv.FormatInt(result.ID, 10) + "/out-of-control")
	if err := checkResponse(resp, err, http.StatusNoContent, http.StatusOK); err != nil {
		return errors.Wrap(err, MsgUpdateDispositionFailed)
	}
	return nil
}

func (l *logicControlClient) GetAssayInfo(ctx context.Context, assayName string) (AssayInfo, error) {
	var assayInfo AssayInfo
	resp, err := l.client.R().
		SetContext(ctx).
		SetPathParam("assayName", assayName).
		SetResult(&assayInfo).
		Get(l.logicUrl + "/v1/assays/{assayName}")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return AssayInfo{}, errors.Wrap(err, MsgGetAssayInfoFailed)
	}
	return assayInfo, nil
}

func (l *logicControlClient) GetStatusCodes(ctx context.Context) (map[QcState]string, error) {
	statusCodes := make([]statusCodeTO, 0)
	resp, err := l.client.R().
		SetContext(ctx).
		SetResult(&statusCodes).
		Get(l.logicUrl + "/v1/status-codes")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return nil, errors.Wrap(err, MsgGetStatusCodesFailed)
	}
	texts := make(map[QcState]string, len(statusCodes))
	for _, statusCode := range statusCodes {
		texts[statusCode.State] = statusCode.Text
	}
	return texts, nil
}

func checkResponse(resp *resty.Response, err error, expectedStatusCodes ...int) error {
	if err != nil {
		log.Error().Err(err).Msg("Failed to call logic service API")
		return err
	}
	for _, statusCode := range expectedStatusCodes {
		if resp.StatusCode() == statusCode {
			return nil
		}
	}

	errResp := errorResponseTO{}
	if err := json.Unmarshal(resp.Body(), &errResp); err != nil || errResp.Message == "" {
		err = fmt.Errorf("unexpected response from logic service %d", resp.StatusCode())
		log.Error().Err(err).Str("url", resp.Request.URL).Msg("Failed to call logic service API")
		return err
	}
	err = errors.New(errResp.Message + "(" + errResp.Code + ")")
	log.Error().Err(err).Str("url", resp.Request.URL).Int("status", resp.StatusCode()).Msg("Logic service API returned an error")
	return err
}
