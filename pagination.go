package qcgraph

import (
	"encoding/json"
	"time"
)

type SortDirection string // @Name SortDirection

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
	SortNone SortDirection = ""
)

func (s SortDirection) String() string {
	return string(s)
}

// Filter narrows a listing down to entries created at or after TimeFrom whose text
// fields contain Filter.
type Filter struct {
	TimeFrom *time.Time `form:"timeFrom" json:"timeFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	Filter   *string    `form:"filter" json:"filter"`
	Pageable Pageable
}

type Pageable struct {
	Page      int           `form:"page,default=0" json:"page" minimum:"0" default:"0"`           // The desired page number
	PageSize  int           `form:"pageSize,default=25" json:"pageSize" minimum:"0" default:"25"` // The desired number of items per page, 0 returns everything
	Direction SortDirection `form:"direction" json:"direction" enums:"asc,desc"`                  // The sorting direction, newest first by default
} // @Name Pageable

func (p *Pageable) UnmarshalJSON(data []byte) error {
	type pageableAlias Pageable
	pageable := pageableAlias{
		Page:     0,
		PageSize: 25,
	}
	if err := json.Unmarshal(data, &pageable); err != nil {
		return err
	}
	*p = Pageable(pageable)
	return nil
}

func (p *Pageable) IsPaged() bool {
	return p.PageSize > 0
}

func (p *Pageable) IsUnPaged() bool {
	return p.PageSize == 0
}

type PagedResponse struct {
	Items      interface{} `json:"content"`                 // The items
	Page       int         `json:"currentPage" example:"1"` // The actual page number
	PageSize   int         `json:"pageSize" example:"50"`   // The number of items per page
	TotalCount int         `json:"totalCount" example:"69"` // The total count of items
	TotalPages int         `json:"totalPages" example:"2"`  // The total pages
} // @Name PagedResponse

func NewPagedResponse(pageable Pageable, totalCount int, items interface{}) PagedResponse {
	var totalPages int
	if pageable.IsUnPaged() {
		if totalCount > 0 {
			totalPages = 1
		}

		return PagedResponse{
			Items:      items,
			TotalCount: totalCount,
			TotalPages: totalPages,
		}
	}

	if totalCount > 0 {
		totalPages = (totalCount + pageable.PageSize - 1) / pageable.PageSize
	}

	return PagedResponse{
		Items:      items,
		Page:       pageable.Page,
		PageSize:   pageable.PageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}

// paginate cuts the requested page out of an already filtered and sorted list.
func paginate[T any](pageable Pageable, items []T) []T {
	if pageable.IsUnPaged() {
		return items
	}
	low := pageable.Page * pageable.PageSize
	if pageable.Page < 0 || low >= len(items) {
		return []T{}
	}
	high := low + pageable.PageSize
	if high > len(items) {
		high = len(items)
	}
	return items[low:high]
}
