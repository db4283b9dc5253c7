package qcgraph

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

type EventKind string

const (
	EventDeviceChanged        EventKind = "DEVICE_CHANGED"
	EventAssayChanged         EventKind = "ASSAY_CHANGED"
	EventDateRangeChanged     EventKind = "DATE_RANGE_CHANGED"
	EventQcDocChanged         EventKind = "QC_DOC_CHANGED"
	EventShowNoCalcToggled    EventKind = "SHOW_NO_CALC_TOGGLED"
	EventShowSubPointsToggled EventKind = "SHOW_SUB_POINTS_TOGGLED"
	EventXAxisModeChanged     EventKind = "X_AXIS_MODE_CHANGED"
	EventTableRowSelected     EventKind = "TABLE_ROW_SELECTED"
	EventGraphicPointSelected EventKind = "GRAPHIC_POINT_SELECTED"
	EventQcResultsUpdated     EventKind = "QC_RESULTS_UPDATED"
	EventLevelTabChanged      EventKind = "LEVEL_TAB_CHANGED"
)

// Event is the closed set of inputs a chart page reacts to.
type Event interface {
	Kind() EventKind
}

// EventDispatcher consumes events, one at a time per page.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

type DeviceChanged struct {
	Device DeviceIdentity `json:"device"`
}

type AssayChanged struct {
	AssayName string `json:"assayName"`
}

type DateRangeChanged struct {
	Range DateRange `json:"range"`
}

// QcDocChanged assigns a QC material to an LJ level slot. An empty id clears the slot.
type QcDocChanged struct {
	Slot    LevelSlot `json:"slot"`
	QcDocID string    `json:"qcDocId"`
}

type ShowNoCalcToggled struct {
	Show bool `json:"show"`
}

type ShowSubPointsToggled struct {
	Show bool `json:"show"`
}

type XAxisModeChanged struct {
	Mode XAxisMode `json:"mode"`
}

// TableRowSelected selects a row. Slot is ignored by the Youden page.
type TableRowSelected struct {
	Slot LevelSlot `json:"slot"`
	Row  int       `json:"row"`
}

type GraphicPointSelected struct {
	CurveID  CurveID `json:"curveId"`
	ResultID int64   `json:"resultId"`
}

type QcResultsUpdated struct {
	Notification QcResultNotification `json:"notification"`
}

type LevelTabChanged struct {
	Slot LevelSlot `json:"slot"`
}

func (DeviceChanged) Kind() EventKind        { return EventDeviceChanged }
func (AssayChanged) Kind() EventKind         { return EventAssayChanged }
func (DateRangeChanged) Kind() EventKind     { return EventDateRangeChanged }
func (QcDocChanged) Kind() EventKind         { return EventQcDocChanged }
func (ShowNoCalcToggled) Kind() EventKind    { return EventShowNoCalcToggled }
func (ShowSubPointsToggled) Kind() EventKind { return EventShowSubPointsToggled }
func (XAxisModeChanged) Kind() EventKind     { return EventXAxisModeChanged }
func (TableRowSelected) Kind() EventKind     { return EventTableRowSelected }
func (GraphicPointSelected) Kind() EventKind { return EventGraphicPointSelected }
func (QcResultsUpdated) Kind() EventKind     { return EventQcResultsUpdated }
func (LevelTabChanged) Kind() EventKind      { return EventLevelTabChanged }

// EventTO is the wire envelope of an event.
type EventTO struct {
	Type    EventKind       `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

func DecodeEvent(to EventTO) (Event, error) {
	var event Event
	switch to.Type {
	case EventDeviceChanged:
		event = &DeviceChanged{}
	case EventAssayChanged:
		event = &AssayChanged{}
	case EventDateRangeChanged:
		event = &DateRangeChanged{}
	case EventQcDocChanged:
		event = &QcDocChanged{}
	case EventShowNoCalcToggled:
		event = &ShowNoCalcToggled{}
	case EventShowSubPointsToggled:
		event = &ShowSubPointsToggled{}
	case EventXAxisModeChanged:
		event = &XAxisModeChanged{}
	case EventTableRowSelected:
		event = &TableRowSelected{}
	case EventGraphicPointSelected:
		event = &GraphicPointSelected{}
	case EventQcResultsUpdated:
		event = &QcResultsUpdated{}
	case EventLevelTabChanged:
		event = &LevelTabChanged{}
	default:
		return nil, errors.Wrapf(ErrUnknownEvent, "type %q", to.Type)
	}

	if len(to.Payload) > 0 {
		if err := json.Unmarshal(to.Payload, event); err != nil {
			return nil, errors.Wrapf(ErrInvalidEventPayload, "type %q: %s", to.Type, err)
		}
	}
	return derefEvent(event), nil
}

func derefEvent(event Event) Event {
	switch e := event.(type) {
	case *DeviceChanged:
		return *e
	case *AssayChanged:
		return *e
	case *DateRangeChanged:
		return *e
	case *QcDocChanged:
		return *e
	case *ShowNoCalcToggled:
		return *e
	case *ShowSubPointsToggled:
		return *e
	case *XAxisModeChanged:
		return *e
	case *TableRowSelected:
		return *e
	case *GraphicPointSelected:
		return *e
	case *QcResultsUpdated:
		return *e
	case *LevelTabChanged:
		return *e
	}
	return event
}
