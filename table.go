package qcgraph

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const tableTimeFormat = "2006-01-02 15:04:05"

// TableRow is one formatted result table row. Values use the precision of the assay.
type TableRow struct {
	ResultID           int64  `json:"resultId"`
	QcTime             string `json:"qcTime"`
	Result             string `json:"result"`
	TargetValue        string `json:"targetValue"`
	SD                 string `json:"sd"`
	State              string `json:"state"`
	Calculated         bool   `json:"calculated"`
	OutOfControlRule   string `json:"outOfControlRule"`
	HasDisposition     bool   `json:"hasDisposition"`
	OutOfControlReason string `json:"outOfControlReason"`
	Solution           string `json:"solution"`
	Operator           string `json:"operator"`
	QcNo               string `json:"qcNo"`
	QcName             string `json:"qcName"`
	Level              string `json:"level"`
	Lot                string `json:"lot"`
	UnionIndex         int    `json:"unionIndex,omitempty"`
	IsX                bool   `json:"isX,omitempty"`
	UnionMark          bool   `json:"unionMark,omitempty"`
	Selected           bool   `json:"selected"`
}

// FormatValue renders v with a fixed number of decimal places.
func FormatValue(v float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	return decimal.NewFromFloat(v).StringFixed(int32(precision))
}

type TableFormatter struct {
	statusCodes StatusCodeLookup
	location    *time.Location
}

func NewTableFormatter(statusCodes StatusCodeLookup, location *time.Location) *TableFormatter {
	if location == nil {
		location = time.UTC
	}
	return &TableFormatter{statusCodes: statusCodes, location: location}
}

func (f *TableFormatter) row(ctx context.Context, r QcResult, precision int) TableRow {
	return TableRow{
		ResultID:           r.ID,
		QcTime:             r.QcTime.In(f.location).Format(tableTimeFormat),
		Result:             FormatValue(r.Result, precision),
		TargetValue:        FormatValue(r.TargetValue, precision),
		SD:                 FormatValue(r.SD, precision),
		State:              f.statusCodes.StateText(ctx, r.State),
		Calculated:         r.Calculated,
		OutOfControlRule:   r.OutOfControlRule,
		HasDisposition:     r.State == QcStateOutOfControl && r.HasDisposition(),
		OutOfControlReason: r.OutOfControlReason,
		Solution:           r.Solution,
		Operator:           r.Operator,
		QcNo:               r.QcNo,
		QcName:             r.QcName,
		Level:              r.Level,
		Lot:                r.Lot,
	}
}

// LJRows formats a level table. selectedRow is -1 when no row of this table is selected.
func (f *TableFormatter) LJRows(ctx context.Context, results []QcResult, assay AssayInfo, selectedRow int) []TableRow {
	rows := make([]TableRow, len(results))
	for i, r := range results {
		rows[i] = f.row(ctx, r, assay.Precision)
		rows[i].Selected = i == selectedRow
	}
	return rows
}

func (f *TableFormatter) YoudenRows(ctx context.Context, results []TwinQcResult, assay AssayInfo, selectedRow, unionRow int) []TableRow {
	rows := make([]TableRow, len(results))
	for i, r := range results {
		rows[i] = f.row(ctx, r.QcResult, assay.Precision)
		rows[i].UnionIndex = r.UnionIndex
		rows[i].IsX = r.IsX
		rows[i].Selected = i == selectedRow
		rows[i].UnionMark = i == unionRow
	}
	return rows
}
