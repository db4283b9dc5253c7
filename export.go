package qcgraph

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ExportRecord is everything a print job needs. The chart is a rendered PNG.
type ExportRecord struct {
	ID         uuid.UUID         `json:"id"`
	Kind       ChartKind         `json:"kind"`
	Title      string            `json:"title"`
	Device     DeviceIdentity    `json:"device"`
	AssayName  string            `json:"assayName"`
	Range      DateRange         `json:"range"`
	PrintedAt  time.Time         `json:"printedAt"`
	PrintedBy  string            `json:"printedBy"`
	ChartPNG   []byte            `json:"chartPng"`
	Rows       []TableRow        `json:"rows"`
	Statistics []LevelStatistics `json:"statistics,omitempty"`
}

type ExportSink interface {
	Export(ctx context.Context, record ExportRecord) error
}

type printServiceSink struct {
	client          *resty.Client
	printServiceUrl string
}

// NewPrintServiceSink hands export records over to the print service as print jobs.
func NewPrintServiceSink(printServiceUrl string, restyClient *resty.Client) (ExportSink, error) {
	if printServiceUrl == "" {
		return nil, fmt.Errorf("basepath for the print service must be set. check your configuration for PrintServiceURL")
	}
	return &printServiceSink{
		client:          restyClient,
		printServiceUrl: strings.TrimRight(printServiceUrl, "/"),
	}, nil
}

func (s *printServiceSink) Export(ctx context.Context, record ExportRecord) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(record).
		Post(s.printServiceUrl + "/v1/print-jobs")
	if err := checkResponse(resp, err, http.StatusOK, http.StatusCreated, http.StatusAccepted); err != nil {
		return errors.Wrap(err, MsgSendPrintJobFailed)
	}
	log.Info().Str("printJobId", record.ID.String()).Str("assay", record.AssayName).Msg("print job sent")
	return nil
}

func chartTitle(kind ChartKind, device DeviceIdentity, assayName string) string {
	name := "Levey-Jennings"
	if kind == ChartYouden {
		name = "Youden"
	}
	if device.Name == "" {
		return fmt.Sprintf("%s %s", name, assayName)
	}
	return fmt.Sprintf("%s %s - %s", name, assayName, device.Name)
}
