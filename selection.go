package qcgraph

import (
	"github.com/rs/zerolog/log"
)

// ResultTable is the in-memory model of a result table with a hash index from
// result id to row.
type ResultTable[T any] struct {
	rows  []T
	index map[int64]int
}

func NewResultTable[T any](rows []T, idOf func(T) int64) *ResultTable[T] {
	table := &ResultTable[T]{
		rows:  rows,
		index: make(map[int64]int, len(rows)),
	}
	for i, row := range rows {
		id := idOf(row)
		if _, exists := table.index[id]; exists {
			log.Warn().Int64("resultId", id).Int("row", i).Msg("duplicate result id in table, keeping first row")
			continue
		}
		table.index[id] = i
	}
	return table
}

func (t *ResultTable[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func (t *ResultTable[T]) Rows() []T {
	if t == nil {
		return nil
	}
	return t.rows
}

func (t *ResultTable[T]) Row(i int) (T, bool) {
	var zero T
	if t == nil || i < 0 || i >= len(t.rows) {
		return zero, false
	}
	return t.rows[i], true
}

func (t *ResultTable[T]) RowOf(id int64) (int, bool) {
	if t == nil {
		return -1, false
	}
	row, ok := t.index[id]
	return row, ok
}

func qcResultID(r QcResult) int64 {
	return r.ID
}

func twinResultID(r TwinQcResult) int64 {
	return r.ID
}

// RowRef addresses a row in one of the LJ level tables.
type RowRef struct {
	Slot LevelSlot `json:"slot"`
	Row  int       `json:"row"`
}

var NoRow = RowRef{Row: -1}

func (r RowRef) IsEmpty() bool {
	return r.Row < 0
}

// LJSelectionMapper keeps the LJ chart point and the level table row selection in sync.
type LJSelectionMapper struct {
	tables   [LevelSlotCount]*ResultTable[QcResult]
	mode     XAxisMode
	selected Selection
	row      RowRef
}

func NewLJSelectionMapper() *LJSelectionMapper {
	return &LJSelectionMapper{mode: XAxisByDay, row: NoRow}
}

// Load replaces the level tables. A previously selected result that is still present
// stays selected, otherwise the selection is cleared.
func (m *LJSelectionMapper) Load(levels [LevelSlotCount][]QcResult, mode XAxisMode) {
	previous := m.selected
	for i := range levels {
		m.tables[i] = NewResultTable(levels[i], qcResultID)
	}
	m.mode = mode
	m.Clear()
	if previous.IsEmpty() {
		return
	}
	for i := range m.tables {
		if row, ok := m.tables[i].RowOf(previous.ResultID); ok {
			m.SelectByTableRow(LevelSlot(i+1), row)
			return
		}
	}
}

func (m *LJSelectionMapper) Table(slot LevelSlot) *ResultTable[QcResult] {
	if !slot.Valid() {
		return nil
	}
	return m.tables[slot-1]
}

func (m *LJSelectionMapper) Selected() Selection {
	return m.selected
}

func (m *LJSelectionMapper) SelectedRow() RowRef {
	return m.row
}

func (m *LJSelectionMapper) Clear() {
	m.selected = NoSelection
	m.row = NoRow
}

// SelectByTableRow returns the chart point of a table row. An unknown row clears the selection.
func (m *LJSelectionMapper) SelectByTableRow(slot LevelSlot, row int) (Selection, bool) {
	r, ok := m.Table(slot).Row(row)
	if !ok {
		m.Clear()
		return NoSelection, false
	}
	m.selected = Selection{CurveID: CurveForResult(r, slot, m.mode), ResultID: r.ID}
	m.row = RowRef{Slot: slot, Row: row}
	return m.selected, true
}

// SelectByGraphicPoint finds the table row of a chart point. The no-calc curve spans
// every level, so all tables are searched for it.
func (m *LJSelectionMapper) SelectByGraphicPoint(curveID CurveID, resultID int64) (RowRef, bool) {
	var slots []LevelSlot
	if curveID == CurveLJNoCalc {
		slots = []LevelSlot{1, 2, 3, 4}
	} else if slot, ok := SlotOfCurve(curveID); ok {
		slots = []LevelSlot{slot}
	}

	for _, slot := range slots {
		row, ok := m.Table(slot).RowOf(resultID)
		if !ok {
			continue
		}
		r, _ := m.Table(slot).Row(row)
		if !m.pointBelongsToCurve(r, slot, curveID) {
			continue
		}
		m.selected = Selection{CurveID: curveID, ResultID: resultID}
		m.row = RowRef{Slot: slot, Row: row}
		return m.row, true
	}
	m.Clear()
	return NoRow, false
}

// In day mode the daily mean carries the id of a bucket member, so a mean point
// selects that member's row.
func (m *LJSelectionMapper) pointBelongsToCurve(r QcResult, slot LevelSlot, curveID CurveID) bool {
	if curveID == CurveForResult(r, slot, m.mode) {
		return true
	}
	return m.mode == XAxisByDay && r.Calculated && curveID == slot.MainCurve()
}

// YoudenSelectionMapper keeps the Youden chart point and the twin result table in sync.
// The row paired with the selected one carries the union glyph. Pairs and curves are
// taken from the loaded chart, so only drawn points can be selected.
type YoudenSelectionMapper struct {
	table    *ResultTable[TwinQcResult]
	partners map[int]int
	curves   map[int64]CurveID
	selected Selection
	row      int
	unionRow int
}

func NewYoudenSelectionMapper() *YoudenSelectionMapper {
	return &YoudenSelectionMapper{row: -1, unionRow: -1}
}

// Load replaces the table with rows and indexes the points of chart, which must have
// been built from the same rows.
func (m *YoudenSelectionMapper) Load(rows []TwinQcResult, chart YoudenChart) {
	previous := m.selected
	previousRow, _ := m.table.Row(m.row)

	m.table = NewResultTable(rows, twinResultID)
	m.partners = make(map[int]int, len(rows))
	for _, pair := range PairYoudenResults(rows) {
		xRow, xOK := m.table.RowOf(pair.X.ID)
		yRow, yOK := m.table.RowOf(pair.Y.ID)
		if !xOK || !yOK {
			continue
		}
		m.partners[xRow] = yRow
		m.partners[yRow] = xRow
	}
	m.curves = make(map[int64]CurveID)
	for _, series := range chart.Series {
		for _, id := range series.IDs {
			m.curves[id] = series.ID
		}
	}

	m.Clear()
	if previous.IsEmpty() {
		return
	}
	if row, ok := m.table.RowOf(previousRow.ID); ok {
		m.SelectByTableRow(row)
	}
}

func (m *YoudenSelectionMapper) Table() *ResultTable[TwinQcResult] {
	return m.table
}

func (m *YoudenSelectionMapper) Selected() Selection {
	return m.selected
}

func (m *YoudenSelectionMapper) SelectedRow() int {
	return m.row
}

// UnionRow is the row paired with the selected one, -1 if there is none.
func (m *YoudenSelectionMapper) UnionRow() int {
	return m.unionRow
}

func (m *YoudenSelectionMapper) Clear() {
	m.selected = NoSelection
	m.row = -1
	m.unionRow = -1
}

// pointOf resolves a row to the row of the X half of its pair and the drawn curve.
func (m *YoudenSelectionMapper) pointOf(row int) (xRow, partnerRow int, curveID CurveID, ok bool) {
	r, ok := m.table.Row(row)
	if !ok {
		return -1, -1, CurveNone, false
	}
	partnerRow, ok = m.partners[row]
	if !ok {
		return -1, -1, CurveNone, false
	}
	xRow = row
	if !r.IsX {
		xRow = partnerRow
	}
	x, _ := m.table.Row(xRow)
	curveID, ok = m.curves[x.ID]
	return xRow, partnerRow, curveID, ok
}

// SelectByTableRow maps either half of a pair to the pair's chart point, which is
// identified by the X half. Rows without a drawn point clear the selection.
func (m *YoudenSelectionMapper) SelectByTableRow(row int) (Selection, bool) {
	xRow, partnerRow, curveID, ok := m.pointOf(row)
	if !ok {
		m.Clear()
		return NoSelection, false
	}
	x, _ := m.table.Row(xRow)
	m.selected = Selection{CurveID: curveID, ResultID: x.ID}
	m.row = row
	m.unionRow = partnerRow
	return m.selected, true
}

// SelectByGraphicPoint selects the X row of the point, unless the current row already
// belongs to the same pair.
func (m *YoudenSelectionMapper) SelectByGraphicPoint(curveID CurveID, resultID int64) (int, bool) {
	row, ok := m.table.RowOf(resultID)
	if !ok {
		m.Clear()
		return -1, false
	}
	xRow, partnerRow, drawn, ok := m.pointOf(row)
	if !ok || xRow != row || drawn != curveID {
		m.Clear()
		return -1, false
	}

	if m.row == partnerRow && m.row >= 0 {
		m.unionRow = xRow
	} else {
		m.row = xRow
		m.unionRow = partnerRow
	}
	m.selected = Selection{CurveID: curveID, ResultID: resultID}
	return m.row, true
}
