package qcgraph

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/blutspende/qcgraph/oplog/service"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultQueryRangeDays = 30
	defaultPrecision      = 2
)

// PageDependencies are the capabilities a chart page needs. Nil lookups fall back to
// permissive or neutral defaults.
type PageDependencies struct {
	Fetcher          QcResultFetcher
	Client           LogicControlClient
	Assays           AssayMetadataLookup
	Permissions      PermissionLookup
	StatusCodes      StatusCodeLookup
	OperationLog     service.OperationLogService
	Renderer         ChartRenderer
	Export           ExportSink
	Location         *time.Location
	Now              func() time.Time
	DefaultRangeDays int
}

func (d PageDependencies) withDefaults() PageDependencies {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.DefaultRangeDays <= 0 {
		d.DefaultRangeDays = defaultQueryRangeDays
	}
	if d.Renderer == nil {
		d.Renderer = NewPlotRenderer()
	}
	return d
}

// defaultRange covers the last rangeDays calendar days up to the end of today.
func (d PageDependencies) defaultRange() DateRange {
	now := d.Now().In(d.Location)
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, d.Location)
	start := time.Date(now.Year(), now.Month(), now.Day()-d.DefaultRangeDays+1, 0, 0, 0, 0, d.Location)
	return DateRange{Start: start, End: end}
}

func (d PageDependencies) assayInfo(ctx context.Context, assayName string) AssayInfo {
	if d.Assays != nil {
		if assay, ok := d.Assays.GetAssayInfo(ctx, assayName); ok {
			return assay
		}
	}
	log.Warn().Str("assay", assayName).Msg(MsgMissingAssayInfo)
	return AssayInfo{AssayName: assayName, Precision: defaultPrecision}
}

func (d PageDependencies) tableFormatter() *TableFormatter {
	statusCodes := d.StatusCodes
	if statusCodes == nil {
		statusCodes = stateNameLookup{}
	}
	return NewTableFormatter(statusCodes, d.Location)
}

// warmStatusCodes loads the state texts outside of the page lock.
func (d PageDependencies) warmStatusCodes(ctx context.Context) {
	if d.StatusCodes != nil {
		d.StatusCodes.StateText(ctx, QcStateNone)
	}
}

// authorize checks the permission and records a denial in the operation log.
func (d PageDependencies) authorize(ctx context.Context, permission Permission, entry service.Entry) error {
	if d.Permissions == nil || d.Permissions.HasPermission(ctx, permission) {
		return nil
	}
	entry.Message = string(permission)
	if d.OperationLog != nil {
		d.OperationLog.Denied(entry)
	}
	return errors.Wrap(ErrPermissionDenied, string(permission))
}

func (d PageDependencies) logOutcome(entry service.Entry, err error) {
	if d.OperationLog == nil {
		return
	}
	if err != nil {
		d.OperationLog.Failed(entry, err)
		return
	}
	d.OperationLog.Succeeded(entry)
}

func operationEntry(ctx context.Context, operation model.Operation, device DeviceIdentity, assayName, targetID string) service.Entry {
	entry := service.Entry{
		DeviceID:  device.DeviceID,
		Operation: operation,
		AssayName: assayName,
		TargetID:  targetID,
	}
	if user, ok := UserFromContext(ctx); ok {
		entry.UserName = user.DisplayName()
	}
	return entry
}

type stateNameLookup struct{}

func (stateNameLookup) StateText(_ context.Context, state QcState) string {
	return state.String()
}

func validateRange(r DateRange) error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return errors.Wrapf(ErrInvalidDateRange, "start %s end %s", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// listeners fans a page view out to its subscribers. Listeners are called outside of
// the page lock.
type listeners[V any] struct {
	mutex     sync.Mutex
	next      int
	callbacks map[int]func(V)
}

func (l *listeners[V]) subscribe(callback func(V)) func() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.callbacks == nil {
		l.callbacks = make(map[int]func(V))
	}
	id := l.next
	l.next++
	l.callbacks[id] = callback
	return func() {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		delete(l.callbacks, id)
	}
}

func (l *listeners[V]) publish(view V) {
	l.mutex.Lock()
	callbacks := make([]func(V), 0, len(l.callbacks))
	for _, callback := range l.callbacks {
		callbacks = append(callbacks, callback)
	}
	l.mutex.Unlock()

	for _, callback := range callbacks {
		callback(view)
	}
}

// Page is what the page registry and the HTTP surface need from a chart page.
type Page interface {
	EventDispatcher
	ID() uuid.UUID
	Kind() ChartKind
	Device() DeviceIdentity
	AssayName() string
	// Snapshot returns the current view, an LJView or a YoudenView.
	Snapshot() interface{}
	SubscribeSnapshots(callback func(interface{})) func()
	RenderPNG() ([]byte, error)
	RenderHTML(w io.Writer) error
	Print(ctx context.Context) error
	ToggleCalculated(ctx context.Context, resultID int64, included bool) error
	SaveOutOfControlDisposition(ctx context.Context, resultID int64, reason, solution string) error
	Wait()
	Close()
}
