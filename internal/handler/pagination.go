package handler

import (
	"net/http"
	"strconv"
)

const perPage = 10

// PageSlot is one entry of the page-number strip: a page link or an ellipsis.
type PageSlot struct {
	Number   int
	Ellipsis bool
	Current  bool
}

// Pagination describes one page of a list for the pagination partial.
type Pagination struct {
	Page       int
	TotalPages int
	TotalItems int
	Start      int // 1-based index of the first item shown; 0 when empty
	End        int
	Slots      []PageSlot
	BaseURL    string // list URL without the page parameter
	Target     string // hx-target selector for page links
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }
func (p Pagination) PrevPage() int { return p.Page - 1 }
func (p Pagination) NextPage() int { return p.Page + 1 }

// paginate clamps page into range and computes the visible window.
func paginate(totalItems, page int) Pagination {
	totalPages := (totalItems + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	p := Pagination{Page: page, TotalPages: totalPages, TotalItems: totalItems}
	if totalItems > 0 {
		p.Start = (page-1)*perPage + 1
		p.End = min(page*perPage, totalItems)
	}
	p.Slots = pageWindow(page, totalPages)
	return p
}

// pageWindow returns the page numbers to show. Up to five pages are listed
// in full; beyond that the first and last pages stay visible around the
// current one, with ellipses for the gaps.
func pageWindow(current, total int) []PageSlot {
	var nums []int // 0 marks an ellipsis
	switch {
	case total <= 5:
		for i := 1; i <= total; i++ {
			nums = append(nums, i)
		}
	case current <= 3:
		nums = []int{1, 2, 3, 4, 0, total}
	case current >= total-2:
		nums = []int{1, 0, total - 3, total - 2, total - 1, total}
	default:
		nums = []int{1, 0, current - 1, current, current + 1, 0, total}
	}
	slots := make([]PageSlot, len(nums))
	for i, n := range nums {
		if n == 0 {
			slots[i] = PageSlot{Ellipsis: true}
			continue
		}
		slots[i] = PageSlot{Number: n, Current: n == current}
	}
	return slots
}

// pageItems returns the slice of items that p covers.
func pageItems[T any](items []T, p Pagination) []T {
	if p.Start == 0 {
		return nil
	}
	return items[p.Start-1 : p.End]
}

// pageParam reads ?page=, defaulting to 1.
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
