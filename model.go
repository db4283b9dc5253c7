package qcgraph

import (
	"time"

	"github.com/google/uuid"
)

type QcState int

const (
	QcStateNone QcState = iota
	QcStateInControl
	QcStateWarning
	QcStateOutOfControl
)

func (s QcState) String() string {
	switch s {
	case QcStateInControl:
		return "IN_CONTROL"
	case QcStateWarning:
		return "WARNING"
	case QcStateOutOfControl:
		return "OUT_OF_CONTROL"
	default:
		return "NONE"
	}
}

type SymbolStyle string

const (
	SymbolEllipse  SymbolStyle = "ellipse"
	SymbolTriangle SymbolStyle = "triangle"
	SymbolXCross   SymbolStyle = "xcross"
)

type XAxisMode string

const (
	XAxisByDay   XAxisMode = "DAY"
	XAxisByCount XAxisMode = "COUNT"
)

type DeviceClassify int

const (
	DeviceClassifyOther     DeviceClassify = 0
	DeviceClassifyImmune    DeviceClassify = 1
	DeviceClassifyChemistry DeviceClassify = 2
	DeviceClassifyISE       DeviceClassify = 4
)

// LevelSlotCount is the number of QC materials an LJ chart can show at once.
const LevelSlotCount = 4

// LevelSlot addresses one of the LJ graph slots, 1..LevelSlotCount.
type LevelSlot int

func (s LevelSlot) Valid() bool {
	return s >= 1 && s <= LevelSlotCount
}

type QcMaterial struct {
	QcNo        string `json:"qcNo"`
	QcName      string `json:"qcName"`
	QcBriefName string `json:"qcBriefName"`
	SourceType  string `json:"sourceType"`
	Level       string `json:"level"`
	Lot         string `json:"lot"`
}

// QcResult is one QC measurement as delivered by the logic service. It is read-only
// for the chart pipeline.
type QcResult struct {
	ID                 int64     `json:"id"`
	QcDocID            string    `json:"qcDocId"`
	AssayName          string    `json:"assayName"`
	ResultDetailID     string    `json:"resultDetailId"`
	QcTime             time.Time `json:"qcTime"`
	Result             float64   `json:"result"`
	TargetValue        float64   `json:"targetValue"`
	SD                 float64   `json:"sd"`
	Calculated         bool      `json:"calculated"`
	State              QcState   `json:"state"`
	QcReason           string    `json:"qcReason"`
	OutOfControlRule   string    `json:"outOfControlRule"`
	OutOfControlReason string    `json:"outOfControlReason"`
	Solution           string    `json:"solution"`
	Operator           string    `json:"operator"`
	QcMaterial
}

// HasDisposition reports whether an out-of-control reason or solution was recorded.
func (r QcResult) HasDisposition() bool {
	return r.OutOfControlReason != "" || r.Solution != ""
}

type TwinQcResult struct {
	QcResult
	UnionIndex int  `json:"unionIndex"`
	IsX        bool `json:"isX"`
}

type QcDocInfo struct {
	QcMaterial
	ID               string  `json:"id"`
	TargetValue      float64 `json:"targetValue"`
	SD               float64 `json:"sd"`
	CV               float64 `json:"cv"`
	CalculatedTarget float64 `json:"calculatedTarget"`
	CalculatedSD     float64 `json:"calculatedSd"`
	CalculatedCV     float64 `json:"calculatedCv"`
	ResultCount      int     `json:"resultCount"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (d DateRange) IsZero() bool {
	return d.Start.IsZero() && d.End.IsZero()
}

// DeviceIdentity selects the device (and module for combined devices) a query runs against.
type DeviceIdentity struct {
	DeviceID  uuid.UUID `json:"deviceId"`
	Name      string    `json:"name"`
	GroupName string    `json:"groupName"`
	ModuleNo  int       `json:"moduleNo"`
}

type QcDocQueryCond struct {
	Device    DeviceIdentity `json:"device"`
	AssayName string         `json:"assayName"`
	Range     DateRange      `json:"range"`
}

type QcResultQueryCond struct {
	Device    DeviceIdentity `json:"device"`
	AssayName string         `json:"assayName"`
	QcDocID   string         `json:"qcDocId"`
	Range     DateRange      `json:"range"`
}

type AssayInfo struct {
	AssayName      string         `json:"assayName"`
	AssayCode      int            `json:"assayCode"`
	Precision      int            `json:"precision"`
	Unit           string         `json:"unit"`
	DeviceClassify DeviceClassify `json:"deviceClassify"`
}

type CurveID string

const (
	CurveLJQc1       CurveID = "LJ_QC_1"
	CurveLJQc2       CurveID = "LJ_QC_2"
	CurveLJQc3       CurveID = "LJ_QC_3"
	CurveLJQc4       CurveID = "LJ_QC_4"
	CurveLJQc1SubPt  CurveID = "LJ_QC_1_SUB_PT"
	CurveLJQc2SubPt  CurveID = "LJ_QC_2_SUB_PT"
	CurveLJQc3SubPt  CurveID = "LJ_QC_3_SUB_PT"
	CurveLJQc4SubPt  CurveID = "LJ_QC_4_SUB_PT"
	CurveLJNoCalc    CurveID = "LJ_QC_NO_CALC"
	CurveYoudenHist  CurveID = "YOUDEN_HISTORY"
	CurveYoudenToday CurveID = "YOUDEN_TODAY"
	CurveYoudenNoCal CurveID = "YOUDEN_NO_CALC"
	CurveNone        CurveID = ""
)

var ljMainCurves = [LevelSlotCount]CurveID{CurveLJQc1, CurveLJQc2, CurveLJQc3, CurveLJQc4}
var ljSubPointCurves = [LevelSlotCount]CurveID{CurveLJQc1SubPt, CurveLJQc2SubPt, CurveLJQc3SubPt, CurveLJQc4SubPt}

// LJCurveOrder is the fixed emission order of LJ series.
var LJCurveOrder = []CurveID{
	CurveLJQc1, CurveLJQc2, CurveLJQc3, CurveLJQc4,
	CurveLJQc1SubPt, CurveLJQc2SubPt, CurveLJQc3SubPt, CurveLJQc4SubPt,
	CurveLJNoCalc,
}

// YoudenCurveOrder is the fixed emission order of Youden series.
var YoudenCurveOrder = []CurveID{CurveYoudenHist, CurveYoudenToday, CurveYoudenNoCal}

// MainCurve returns the per-level main series (daily mean in day mode, all points in count mode).
func (s LevelSlot) MainCurve() CurveID {
	if !s.Valid() {
		return CurveNone
	}
	return ljMainCurves[s-1]
}

func (s LevelSlot) SubPointCurve() CurveID {
	if !s.Valid() {
		return CurveNone
	}
	return ljSubPointCurves[s-1]
}

// SlotOfCurve maps a level curve back to its slot. The no-calc curve has no slot.
func SlotOfCurve(curveID CurveID) (LevelSlot, bool) {
	for i := 0; i < LevelSlotCount; i++ {
		if ljMainCurves[i] == curveID || ljSubPointCurves[i] == curveID {
			return LevelSlot(i + 1), true
		}
	}
	return 0, false
}

type ChartPoint struct {
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	CurveID  CurveID     `json:"curveId"`
	ResultID int64       `json:"resultId"`
	Symbol   SymbolStyle `json:"symbol"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CurveSeries holds index-aligned parallel arrays: Points[i], IDs[i] and Symbols[i]
// describe the same chart point.
type CurveSeries struct {
	ID      CurveID       `json:"id"`
	Points  []Point       `json:"points"`
	IDs     []int64       `json:"ids"`
	Symbols []SymbolStyle `json:"symbols"`
}

func (c *CurveSeries) append(p ChartPoint) {
	c.Points = append(c.Points, Point{X: p.X, Y: p.Y})
	c.IDs = append(c.IDs, p.ResultID)
	c.Symbols = append(c.Symbols, p.Symbol)
}

func (c CurveSeries) Len() int {
	return len(c.Points)
}

func (c CurveSeries) IndexOf(resultID int64) int {
	for i, id := range c.IDs {
		if id == resultID {
			return i
		}
	}
	return -1
}

// ChartSet is the complete set of series of one chart. Series that got no points
// are present and empty so stale curves can be cleared by the renderer.
type ChartSet struct {
	Series []CurveSeries `json:"series"`
}

func newChartSet(order []CurveID) ChartSet {
	set := ChartSet{Series: make([]CurveSeries, len(order))}
	for i, id := range order {
		set.Series[i] = CurveSeries{
			ID:      id,
			Points:  []Point{},
			IDs:     []int64{},
			Symbols: []SymbolStyle{},
		}
	}
	return set
}

func (s *ChartSet) seriesRef(id CurveID) *CurveSeries {
	for i := range s.Series {
		if s.Series[i].ID == id {
			return &s.Series[i]
		}
	}
	return nil
}

func (s *ChartSet) add(p ChartPoint) {
	if series := s.seriesRef(p.CurveID); series != nil {
		series.append(p)
	}
}

func (s ChartSet) Get(id CurveID) (CurveSeries, bool) {
	for _, series := range s.Series {
		if series.ID == id {
			return series, true
		}
	}
	return CurveSeries{}, false
}

// Contains reports whether the curve holds a point with the given result id.
func (s ChartSet) Contains(id CurveID, resultID int64) bool {
	series, ok := s.Get(id)
	return ok && series.IndexOf(resultID) >= 0
}

type LJChart struct {
	Mode      XAxisMode `json:"mode"`
	StartDate time.Time `json:"startDate"`
	ChartSet
}

type YoudenChart struct {
	ChartSet
}

// Selection identifies the highlighted chart point. CurveID is CurveNone when nothing is selected.
type Selection struct {
	CurveID  CurveID `json:"curveId"`
	ResultID int64   `json:"resultId"`
}

func (s Selection) IsEmpty() bool {
	return s.CurveID == CurveNone
}

var NoSelection = Selection{}
