package qcgraph

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type YoudenSettings struct {
	Device     DeviceIdentity `json:"device"`
	AssayName  string         `json:"assayName"`
	Range      DateRange      `json:"range"`
	ShowNoCalc bool           `json:"showNoCalc"`
}

type YoudenView struct {
	PageID      uuid.UUID      `json:"pageId"`
	Settings    YoudenSettings `json:"settings"`
	Assay       AssayInfo      `json:"assay"`
	Chart       YoudenChart    `json:"chart"`
	Table       []TableRow     `json:"table"`
	Selection   Selection      `json:"selection"`
	SelectedRow int            `json:"selectedRow"`
	UnionRow    int            `json:"unionRow"`
	Generation  uint64         `json:"generation"`
	Loading     bool           `json:"loading"`
}

type youdenData struct {
	results []TwinQcResult
	assay   AssayInfo
}

// YoudenPage drives the twin plot of one client.
type YoudenPage struct {
	id         uuid.UUID
	deps       PageDependencies
	ctx        context.Context
	cancel     context.CancelFunc
	mutex      sync.Mutex
	settings   YoudenSettings
	data       youdenData
	chart      YoudenChart
	mapper     *YoudenSelectionMapper
	refresher  *Refresher[youdenData]
	generation uint64
	loading    bool
	listeners  listeners[YoudenView]
}

func NewYoudenPage(ctx context.Context, deps PageDependencies) *YoudenPage {
	deps = deps.withDefaults()
	pageCtx, cancel := context.WithCancel(ctx)
	p := &YoudenPage{
		id:        uuid.New(),
		deps:      deps,
		ctx:       pageCtx,
		cancel:    cancel,
		settings:  YoudenSettings{Range: deps.defaultRange()},
		data:      youdenData{assay: AssayInfo{Precision: defaultPrecision}},
		mapper:    NewYoudenSelectionMapper(),
		refresher: NewRefresher[youdenData](pageCtx),
	}
	p.rebuildLocked()
	return p
}

func (p *YoudenPage) ID() uuid.UUID {
	return p.id
}

func (p *YoudenPage) Kind() ChartKind {
	return ChartYouden
}

func (p *YoudenPage) Device() DeviceIdentity {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.settings.Device
}

func (p *YoudenPage) AssayName() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.settings.AssayName
}

func (p *YoudenPage) View() YoudenView {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.viewLocked()
}

func (p *YoudenPage) Snapshot() interface{} {
	return p.View()
}

func (p *YoudenPage) Subscribe(listener func(YoudenView)) func() {
	return p.listeners.subscribe(listener)
}

func (p *YoudenPage) SubscribeSnapshots(callback func(interface{})) func() {
	return p.listeners.subscribe(func(view YoudenView) { callback(view) })
}

func (p *YoudenPage) Wait() {
	p.refresher.Wait()
}

func (p *YoudenPage) Close() {
	p.refresher.Stop()
	p.cancel()
}

func (p *YoudenPage) Dispatch(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mutex.Lock()
	refresh, publish, err := p.handleLocked(event)
	if err != nil {
		p.mutex.Unlock()
		log.Debug().Err(err).Str("pageId", p.id.String()).Str("event", string(event.Kind())).Msg("youden page rejected event")
		return err
	}
	if refresh {
		p.refreshLocked()
	}
	var view YoudenView
	if publish {
		view = p.viewLocked()
	}
	p.mutex.Unlock()

	if publish {
		p.listeners.publish(view)
	}
	return nil
}

// handleLocked ignores the events that only concern LJ level slots.
func (p *YoudenPage) handleLocked(event Event) (refresh, publish bool, err error) {
	switch e := event.(type) {
	case DeviceChanged:
		p.settings.Device = e.Device
		return true, true, nil
	case AssayChanged:
		p.settings.AssayName = e.AssayName
		return true, true, nil
	case DateRangeChanged:
		if err := validateRange(e.Range); err != nil {
			return false, false, err
		}
		p.settings.Range = e.Range
		if e.Range.IsZero() {
			p.settings.Range = p.deps.defaultRange()
		}
		return true, true, nil
	case ShowNoCalcToggled:
		p.settings.ShowNoCalc = e.Show
		p.rebuildLocked()
		return false, true, nil
	case TableRowSelected:
		p.mapper.SelectByTableRow(e.Row)
		return false, true, nil
	case GraphicPointSelected:
		p.mapper.SelectByGraphicPoint(e.CurveID, e.ResultID)
		return false, true, nil
	case QcResultsUpdated:
		return p.concernsLocked(e.Notification), false, nil
	case QcDocChanged, ShowSubPointsToggled, XAxisModeChanged, LevelTabChanged:
		return false, false, nil
	}
	return false, false, errors.Wrapf(ErrUnknownEvent, "%T", event)
}

func (p *YoudenPage) concernsLocked(notification QcResultNotification) bool {
	if p.settings.AssayName == "" {
		return false
	}
	if notification.DeviceID != uuid.Nil && notification.DeviceID != p.settings.Device.DeviceID {
		return false
	}
	return notification.AssayName == "" || notification.AssayName == p.settings.AssayName
}

func (p *YoudenPage) refreshLocked() {
	settings := p.settings
	p.loading = true
	p.refresher.Refresh(
		func(ctx context.Context) youdenData {
			return p.load(ctx, settings)
		},
		p.apply,
	)
}

func (p *YoudenPage) requestRefresh() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.refreshLocked()
}

func (p *YoudenPage) load(ctx context.Context, settings YoudenSettings) youdenData {
	data := youdenData{assay: AssayInfo{AssayName: settings.AssayName, Precision: defaultPrecision}}
	if settings.AssayName == "" {
		return data
	}
	data.results = p.deps.Fetcher.FetchYoudenResults(ctx, QcResultQueryCond{
		Device:    settings.Device,
		AssayName: settings.AssayName,
		Range:     settings.Range,
	})
	data.assay = p.deps.assayInfo(ctx, settings.AssayName)
	p.deps.warmStatusCodes(ctx)
	return data
}

func (p *YoudenPage) apply(generation uint64, data youdenData) {
	p.mutex.Lock()
	if !p.refresher.IsCurrent(generation) {
		p.mutex.Unlock()
		return
	}
	p.data = data
	p.generation = generation
	p.loading = false
	p.rebuildLocked()
	view := p.viewLocked()
	p.mutex.Unlock()

	p.listeners.publish(view)
}

func (p *YoudenPage) rebuildLocked() {
	visible := VisibleYoudenRows(p.data.results, p.settings.ShowNoCalc)
	p.chart = BuildYoudenChart(YoudenBuildInput{
		Results:    visible,
		ShowNoCalc: p.settings.ShowNoCalc,
		Now:        p.deps.Now(),
		Location:   p.deps.Location,
	})
	p.mapper.Load(visible, p.chart)
}

func (p *YoudenPage) viewLocked() YoudenView {
	formatter := p.deps.tableFormatter()
	return YoudenView{
		PageID:      p.id,
		Settings:    p.settings,
		Assay:       p.data.assay,
		Chart:       p.chart,
		Table:       formatter.YoudenRows(p.ctx, p.mapper.Table().Rows(), p.data.assay, p.mapper.SelectedRow(), p.mapper.UnionRow()),
		Selection:   p.mapper.Selected(),
		SelectedRow: p.mapper.SelectedRow(),
		UnionRow:    p.mapper.UnionRow(),
		Generation:  p.generation,
		Loading:     p.loading,
	}
}

// pairOfLocked finds the pair a result belongs to among all loaded results.
func (p *YoudenPage) pairOfLocked(resultID int64) (YoudenPair, bool) {
	for _, pair := range PairYoudenResults(p.data.results) {
		if pair.X.ID == resultID || pair.Y.ID == resultID {
			return pair, true
		}
	}
	return YoudenPair{}, false
}

func (p *YoudenPage) findResultLocked(resultID int64) (TwinQcResult, bool) {
	for _, r := range p.data.results {
		if r.ID == resultID {
			return r, true
		}
	}
	return TwinQcResult{}, false
}

// ToggleCalculated includes or excludes both halves of the pair of resultID.
func (p *YoudenPage) ToggleCalculated(ctx context.Context, resultID int64, included bool) error {
	p.mutex.Lock()
	pair, ok := p.pairOfLocked(resultID)
	settings := p.settings
	p.mutex.Unlock()
	if !ok {
		return errors.Wrapf(ErrResultNotFound, "id %d", resultID)
	}

	targetID := fmt.Sprintf("%d/%d", pair.X.ID, pair.Y.ID)
	entry := operationEntry(ctx, model.OperationToggleCalculated, settings.Device, settings.AssayName, targetID)
	if err := p.deps.authorize(ctx, PermissionToggleCalculated, entry); err != nil {
		return err
	}

	err := p.deps.Client.UpdateQcCalcPoint(ctx, pair.X.QcResult, included)
	if err == nil {
		err = p.deps.Client.UpdateQcCalcPoint(ctx, pair.Y.QcResult, included)
	}
	p.deps.logOutcome(entry, err)
	// refresh on failure too, the X half may already be changed
	p.requestRefresh()
	return err
}

func (p *YoudenPage) SaveOutOfControlDisposition(ctx context.Context, resultID int64, reason, solution string) error {
	p.mutex.Lock()
	result, ok := p.findResultLocked(resultID)
	settings := p.settings
	p.mutex.Unlock()
	if !ok {
		return errors.Wrapf(ErrResultNotFound, "id %d", resultID)
	}
	return saveDisposition(ctx, p.deps, settings.Device, settings.AssayName, result.QcResult, reason, solution, p.requestRefresh)
}

func (p *YoudenPage) RenderPNG() ([]byte, error) {
	p.mutex.Lock()
	chart := p.chart
	title := chartTitle(ChartYouden, p.settings.Device, p.settings.AssayName)
	p.mutex.Unlock()
	return p.deps.Renderer.RenderYouden(chart, title)
}

func (p *YoudenPage) RenderHTML(w io.Writer) error {
	p.mutex.Lock()
	chart := p.chart
	title := chartTitle(ChartYouden, p.settings.Device, p.settings.AssayName)
	p.mutex.Unlock()
	return RenderYoudenHTML(w, chart, title)
}

func (p *YoudenPage) Print(ctx context.Context) error {
	view := p.View()
	entry := operationEntry(ctx, model.OperationPrint, view.Settings.Device, view.Settings.AssayName, p.id.String())
	if err := p.deps.authorize(ctx, PermissionPrint, entry); err != nil {
		return err
	}

	record := ExportRecord{
		ID:        uuid.New(),
		Kind:      ChartYouden,
		Title:     chartTitle(ChartYouden, view.Settings.Device, view.Settings.AssayName),
		Device:    view.Settings.Device,
		AssayName: view.Settings.AssayName,
		Range:     view.Settings.Range,
		PrintedAt: p.deps.Now().In(p.deps.Location),
		PrintedBy: entry.UserName,
		Rows:      view.Table,
	}
	err := exportChart(ctx, p.deps, &record, func() ([]byte, error) {
		return p.deps.Renderer.RenderYouden(view.Chart, record.Title)
	})
	p.deps.logOutcome(entry, err)
	return err
}
