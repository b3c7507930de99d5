package domain

// DefaultPageSize is the number of posts shown per listing page.
const DefaultPageSize = 5

// Page is one slice of an ordered listing. Number is 1-indexed.
type Page[T any] struct {
	Items   []T
	Number  int
	PerPage int
	Total   int
}

// Pages returns the total number of pages; an empty listing still has one.
func (p Page[T]) Pages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }

func (p Page[T]) HasNext() bool { return p.Number < p.Pages() }

func (p Page[T]) PrevNum() int { return p.Number - 1 }

func (p Page[T]) NextNum() int { return p.Number + 1 }

// PageNumbers lists page numbers for a pagination widget. Pages near the
// edges and around the current page are kept; each skipped run collapses
// into a single 0.
func (p Page[T]) PageNumbers() []int {
	const (
		leftEdge     = 1
		leftCurrent  = 1
		rightCurrent = 2
		rightEdge    = 1
	)

	pages := p.Pages()
	var out []int
	last := 0
	for num := 1; num <= pages; num++ {
		keep := num <= leftEdge ||
			(num >= p.Number-leftCurrent && num <= p.Number+rightCurrent) ||
			num > pages-rightEdge
		if !keep {
			continue
		}
		if last+1 != num {
			out = append(out, 0)
		}
		out = append(out, num)
		last = num
	}
	return out
}
