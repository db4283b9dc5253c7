package qcgraph

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LJSettings is the user controlled state of an LJ page.
type LJSettings struct {
	Device        DeviceIdentity         `json:"device"`
	AssayName     string                 `json:"assayName"`
	Range         DateRange              `json:"range"`
	QcDocIDs      [LevelSlotCount]string `json:"qcDocIds"`
	Mode          XAxisMode              `json:"mode"`
	ShowNoCalc    bool                   `json:"showNoCalc"`
	ShowSubPoints bool                   `json:"showSubPoints"`
	ActiveSlot    LevelSlot              `json:"activeSlot"`
}

// LJView is the published state of an LJ page: chart, level tables and selection.
type LJView struct {
	PageID      uuid.UUID                       `json:"pageId"`
	Settings    LJSettings                      `json:"settings"`
	Docs        []QcDocInfo                     `json:"docs"`
	Assay       AssayInfo                       `json:"assay"`
	Chart       LJChart                         `json:"chart"`
	Tables      [LevelSlotCount][]TableRow      `json:"tables"`
	Statistics  [LevelSlotCount]LevelStatistics `json:"statistics"`
	Selection   Selection                       `json:"selection"`
	SelectedRow RowRef                          `json:"selectedRow"`
	Generation  uint64                          `json:"generation"`
	Loading     bool                            `json:"loading"`
}

type ljData struct {
	docs     []QcDocInfo
	qcDocIDs [LevelSlotCount]string
	levels   [LevelSlotCount][]QcResult
	assay    AssayInfo
}

// LJPage drives the Levey-Jennings chart of one client. Events are handled one at a
// time; data loads run in the background and only the newest one is applied.
type LJPage struct {
	id         uuid.UUID
	deps       PageDependencies
	ctx        context.Context
	cancel     context.CancelFunc
	mutex      sync.Mutex
	settings   LJSettings
	data       ljData
	chart      LJChart
	mapper     *LJSelectionMapper
	refresher  *Refresher[ljData]
	generation uint64
	loading    bool
	listeners  listeners[LJView]
}

func NewLJPage(ctx context.Context, deps PageDependencies) *LJPage {
	deps = deps.withDefaults()
	pageCtx, cancel := context.WithCancel(ctx)
	p := &LJPage{
		id:     uuid.New(),
		deps:   deps,
		ctx:    pageCtx,
		cancel: cancel,
		settings: LJSettings{
			Range:         deps.defaultRange(),
			Mode:          XAxisByDay,
			ShowSubPoints: true,
			ActiveSlot:    1,
		},
		mapper:    NewLJSelectionMapper(),
		refresher: NewRefresher[ljData](pageCtx),
	}
	p.data.assay = AssayInfo{Precision: defaultPrecision}
	p.rebuildLocked()
	return p
}

func (p *LJPage) ID() uuid.UUID {
	return p.id
}

func (p *LJPage) Kind() ChartKind {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.settings.Mode.ChartKind()
}

func (p *LJPage) Device() DeviceIdentity {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.settings.Device
}

func (p *LJPage) AssayName() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.settings.AssayName
}

func (p *LJPage) View() LJView {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.viewLocked()
}

func (p *LJPage) Snapshot() interface{} {
	return p.View()
}

// Subscribe registers a listener for every published view and returns its cancel func.
func (p *LJPage) Subscribe(listener func(LJView)) func() {
	return p.listeners.subscribe(listener)
}

func (p *LJPage) SubscribeSnapshots(callback func(interface{})) func() {
	return p.listeners.subscribe(func(view LJView) { callback(view) })
}

// Wait blocks until the background loads started so far are done.
func (p *LJPage) Wait() {
	p.refresher.Wait()
}

func (p *LJPage) Close() {
	p.refresher.Stop()
	p.cancel()
}

func (p *LJPage) Dispatch(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mutex.Lock()
	refresh, publish, err := p.handleLocked(event)
	if err != nil {
		p.mutex.Unlock()
		log.Debug().Err(err).Str("pageId", p.id.String()).Str("event", string(event.Kind())).Msg("lj page rejected event")
		return err
	}
	if refresh {
		p.refreshLocked()
	}
	var view LJView
	if publish {
		view = p.viewLocked()
	}
	p.mutex.Unlock()

	if publish {
		p.listeners.publish(view)
	}
	return nil
}

func (p *LJPage) handleLocked(event Event) (refresh, publish bool, err error) {
	switch e := event.(type) {
	case DeviceChanged:
		p.settings.Device = e.Device
		p.settings.QcDocIDs = [LevelSlotCount]string{}
		return true, true, nil
	case AssayChanged:
		p.settings.AssayName = e.AssayName
		p.settings.QcDocIDs = [LevelSlotCount]string{}
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
	case QcDocChanged:
		if !e.Slot.Valid() {
			return false, false, errors.Wrapf(ErrInvalidLevelSlot, "slot %d", e.Slot)
		}
		p.settings.QcDocIDs[e.Slot-1] = e.QcDocID
		return true, true, nil
	case ShowNoCalcToggled:
		p.settings.ShowNoCalc = e.Show
		p.rebuildLocked()
		return false, true, nil
	case ShowSubPointsToggled:
		p.settings.ShowSubPoints = e.Show
		p.rebuildLocked()
		return false, true, nil
	case XAxisModeChanged:
		if e.Mode != XAxisByDay && e.Mode != XAxisByCount {
			return false, false, errors.Wrapf(ErrInvalidXAxisMode, "mode %q", e.Mode)
		}
		p.settings.Mode = e.Mode
		p.rebuildLocked()
		return false, true, nil
	case TableRowSelected:
		if !e.Slot.Valid() {
			return false, false, errors.Wrapf(ErrInvalidLevelSlot, "slot %d", e.Slot)
		}
		if _, ok := p.mapper.SelectByTableRow(e.Slot, e.Row); ok {
			p.settings.ActiveSlot = e.Slot
		}
		return false, true, nil
	case GraphicPointSelected:
		if row, ok := p.mapper.SelectByGraphicPoint(e.CurveID, e.ResultID); ok {
			p.settings.ActiveSlot = row.Slot
		}
		return false, true, nil
	case QcResultsUpdated:
		return p.concernsLocked(e.Notification), false, nil
	case LevelTabChanged:
		if !e.Slot.Valid() {
			return false, false, errors.Wrapf(ErrInvalidLevelSlot, "slot %d", e.Slot)
		}
		p.settings.ActiveSlot = e.Slot
		return false, true, nil
	}
	return false, false, errors.Wrapf(ErrUnknownEvent, "%T", event)
}

func (p *LJPage) concernsLocked(notification QcResultNotification) bool {
	if p.settings.AssayName == "" {
		return false
	}
	if notification.DeviceID != uuid.Nil && notification.DeviceID != p.settings.Device.DeviceID {
		return false
	}
	return notification.AssayName == "" || notification.AssayName == p.settings.AssayName
}

// refreshLocked starts a background load for the current settings. A load that is
// still running is cancelled.
func (p *LJPage) refreshLocked() {
	settings := p.settings
	p.loading = true
	p.refresher.Refresh(
		func(ctx context.Context) ljData {
			return p.load(ctx, settings)
		},
		p.apply,
	)
}

func (p *LJPage) requestRefresh() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.refreshLocked()
}

func (p *LJPage) load(ctx context.Context, settings LJSettings) ljData {
	data := ljData{qcDocIDs: settings.QcDocIDs, assay: AssayInfo{AssayName: settings.AssayName, Precision: defaultPrecision}}
	if settings.AssayName == "" {
		return data
	}

	data.docs = p.deps.Fetcher.FetchQcDocs(ctx, QcDocQueryCond{
		Device:    settings.Device,
		AssayName: settings.AssayName,
		Range:     settings.Range,
	})
	if data.qcDocIDs == ([LevelSlotCount]string{}) {
		for i := 0; i < LevelSlotCount && i < len(data.docs); i++ {
			data.qcDocIDs[i] = data.docs[i].ID
		}
	}

	for i, qcDocID := range data.qcDocIDs {
		if qcDocID == "" {
			continue
		}
		data.levels[i] = p.deps.Fetcher.FetchQcResults(ctx, QcResultQueryCond{
			Device:    settings.Device,
			AssayName: settings.AssayName,
			QcDocID:   qcDocID,
			Range:     settings.Range,
		})
	}
	data.assay = p.deps.assayInfo(ctx, settings.AssayName)
	p.deps.warmStatusCodes(ctx)
	return data
}

func (p *LJPage) apply(generation uint64, data ljData) {
	p.mutex.Lock()
	if !p.refresher.IsCurrent(generation) {
		p.mutex.Unlock()
		return
	}
	p.data = data
	p.settings.QcDocIDs = data.qcDocIDs
	p.generation = generation
	p.loading = false
	p.rebuildLocked()
	view := p.viewLocked()
	p.mutex.Unlock()

	p.listeners.publish(view)
}

func (p *LJPage) visibleLevelsLocked() [LevelSlotCount][]QcResult {
	var visible [LevelSlotCount][]QcResult
	for i := range p.data.levels {
		visible[i] = VisibleRows(p.data.levels[i], p.settings.ShowNoCalc, p.settings.Mode)
	}
	return visible
}

func (p *LJPage) rebuildLocked() {
	visible := p.visibleLevelsLocked()
	p.chart = BuildLJChart(LJBuildInput{
		Levels:        visible,
		Mode:          p.settings.Mode,
		ShowNoCalc:    p.settings.ShowNoCalc,
		ShowSubPoints: p.settings.ShowSubPoints,
		Location:      p.deps.Location,
	})
	p.mapper.Load(visible, p.settings.Mode)
}

func (p *LJPage) viewLocked() LJView {
	view := LJView{
		PageID:      p.id,
		Settings:    p.settings,
		Docs:        p.data.docs,
		Assay:       p.data.assay,
		Chart:       p.chart,
		Selection:   p.mapper.Selected(),
		SelectedRow: p.mapper.SelectedRow(),
		Generation:  p.generation,
		Loading:     p.loading,
	}
	if view.Docs == nil {
		view.Docs = []QcDocInfo{}
	}

	formatter := p.deps.tableFormatter()
	selected := p.mapper.SelectedRow()
	for i := 0; i < LevelSlotCount; i++ {
		slot := LevelSlot(i + 1)
		selectedRow := -1
		if selected.Slot == slot {
			selectedRow = selected.Row
		}
		view.Tables[i] = formatter.LJRows(p.ctx, p.mapper.Table(slot).Rows(), p.data.assay, selectedRow)
		view.Statistics[i] = ComputeLevelStatistics(slot, p.docLocked(p.data.qcDocIDs[i]), p.data.levels[i])
	}
	return view
}

func (p *LJPage) docLocked(qcDocID string) QcDocInfo {
	for _, doc := range p.data.docs {
		if doc.ID == qcDocID {
			return doc
		}
	}
	return QcDocInfo{ID: qcDocID}
}

// findResultLocked looks in every loaded row, hidden no-calc rows included.
func (p *LJPage) findResultLocked(resultID int64) (QcResult, bool) {
	for _, results := range p.data.levels {
		for _, r := range results {
			if r.ID == resultID {
				return r, true
			}
		}
	}
	return QcResult{}, false
}

// ToggleCalculated includes or excludes a result from the QC statistics.
func (p *LJPage) ToggleCalculated(ctx context.Context, resultID int64, included bool) error {
	p.mutex.Lock()
	result, ok := p.findResultLocked(resultID)
	settings := p.settings
	p.mutex.Unlock()
	if !ok {
		return errors.Wrapf(ErrResultNotFound, "id %d", resultID)
	}

	entry := operationEntry(ctx, model.OperationToggleCalculated, settings.Device, settings.AssayName, strconv.FormatInt(resultID, 10))
	if err := p.deps.authorize(ctx, PermissionToggleCalculated, entry); err != nil {
		return err
	}
	err := p.deps.Client.UpdateQcCalcPoint(ctx, result, included)
	p.deps.logOutcome(entry, err)
	if err != nil {
		return err
	}
	p.requestRefresh()
	return nil
}

// SaveOutOfControlDisposition stores reason and solution of an out-of-control result.
func (p *LJPage) SaveOutOfControlDisposition(ctx context.Context, resultID int64, reason, solution string) error {
	p.mutex.Lock()
	result, ok := p.findResultLocked(resultID)
	settings := p.settings
	p.mutex.Unlock()
	if !ok {
		return errors.Wrapf(ErrResultNotFound, "id %d", resultID)
	}
	return saveDisposition(ctx, p.deps, settings.Device, settings.AssayName, result, reason, solution, p.requestRefresh)
}

// UpdateTargetValue sets target value and SD of the material in slot.
func (p *LJPage) UpdateTargetValue(ctx context.Context, slot LevelSlot, targetValue, sd float64) error {
	if !slot.Valid() {
		return errors.Wrapf(ErrInvalidLevelSlot, "slot %d", slot)
	}
	if sd <= 0 || !isFinite(sd) || !isFinite(targetValue) {
		return ErrInvalidStatisticalBasis
	}

	p.mutex.Lock()
	qcDocID := p.data.qcDocIDs[slot-1]
	doc := p.docLocked(qcDocID)
	settings := p.settings
	p.mutex.Unlock()
	if qcDocID == "" {
		return errors.Wrapf(ErrQcDocNotFound, "slot %d", slot)
	}

	entry := operationEntry(ctx, model.OperationUpdateTarget, settings.Device, settings.AssayName, qcDocID)
	if err := p.deps.authorize(ctx, PermissionUpdateTargetValue, entry); err != nil {
		return err
	}

	doc.TargetValue = targetValue
	doc.SD = sd
	if targetValue != 0 {
		doc.CV = sd / targetValue * 100
	}
	_, err := p.deps.Client.UpdateQcTargetValSD(ctx, doc, settings.AssayName)
	p.deps.logOutcome(entry, err)
	if err != nil {
		return err
	}
	p.requestRefresh()
	return nil
}

func (p *LJPage) RenderPNG() ([]byte, error) {
	p.mutex.Lock()
	chart := p.chart
	title := chartTitle(p.settings.Mode.ChartKind(), p.settings.Device, p.settings.AssayName)
	p.mutex.Unlock()
	return p.deps.Renderer.RenderLJ(chart, title)
}

func (p *LJPage) RenderHTML(w io.Writer) error {
	p.mutex.Lock()
	chart := p.chart
	title := chartTitle(p.settings.Mode.ChartKind(), p.settings.Device, p.settings.AssayName)
	p.mutex.Unlock()
	return RenderLJHTML(w, chart, title)
}

// Print renders the chart and hands it with every level table to the export sink.
func (p *LJPage) Print(ctx context.Context) error {
	view := p.View()
	entry := operationEntry(ctx, model.OperationPrint, view.Settings.Device, view.Settings.AssayName, p.id.String())
	if err := p.deps.authorize(ctx, PermissionPrint, entry); err != nil {
		return err
	}

	record := ExportRecord{
		ID:         uuid.New(),
		Kind:       view.Settings.Mode.ChartKind(),
		Title:      chartTitle(view.Settings.Mode.ChartKind(), view.Settings.Device, view.Settings.AssayName),
		Device:     view.Settings.Device,
		AssayName:  view.Settings.AssayName,
		Range:      view.Settings.Range,
		PrintedAt:  p.deps.Now().In(p.deps.Location),
		PrintedBy:  entry.UserName,
		Rows:       []TableRow{},
		Statistics: make([]LevelStatistics, 0, LevelSlotCount),
	}
	for i := range view.Tables {
		if view.Settings.QcDocIDs[i] == "" {
			continue
		}
		record.Rows = append(record.Rows, view.Tables[i]...)
		record.Statistics = append(record.Statistics, view.Statistics[i])
	}

	err := exportChart(ctx, p.deps, &record, func() ([]byte, error) {
		return p.deps.Renderer.RenderLJ(view.Chart, record.Title)
	})
	p.deps.logOutcome(entry, err)
	return err
}

func saveDisposition(ctx context.Context, deps PageDependencies, device DeviceIdentity, assayName string, result QcResult, reason, solution string, refresh func()) error {
	if result.State != QcStateOutOfControl {
		return errors.Wrapf(ErrResultNotOutOfControl, "id %d", result.ID)
	}

	entry := operationEntry(ctx, model.OperationDisposition, device, assayName, strconv.FormatInt(result.ID, 10))
	if err := deps.authorize(ctx, PermissionEditDisposition, entry); err != nil {
		return err
	}
	err := deps.Client.UpdateQcOutCtrlReasonAndSolution(ctx, result, reason, solution)
	entry.Message = reason
	deps.logOutcome(entry, err)
	if err != nil {
		return err
	}
	refresh()
	return nil
}

func exportChart(ctx context.Context, deps PageDependencies, record *ExportRecord, render func() ([]byte, error)) error {
	if deps.Export == nil {
		return ErrNoExportSink
	}
	png, err := render()
	if err != nil {
		return err
	}
	record.ChartPNG = png

	exportCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return deps.Export.Export(exportCtx, *record)
}
