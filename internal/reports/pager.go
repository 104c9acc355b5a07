package reports

// PageSequence returns the fixed order of pages in a monthly report book.
func PageSequence() []Kind {
	return []Kind{
		KindCover,
		KindSummaryByJobType,
		KindSummaryByRep,
		KindSummaryByCustomer,
		KindRepBreakdown,
		KindPerformanceComparison,
		KindDailyTrend,
		KindDetailedEntries,
	}
}

// Pager is an immutable cursor over a page sequence. Moving past either end
// clamps; it never wraps and never triggers a rebuild. The zero value walks
// PageSequence.
type Pager struct {
	pages []Kind
	index int
}

// NewPager starts at the first page of pages, or of PageSequence when pages
// is empty.
func NewPager(pages ...Kind) Pager {
	if len(pages) == 0 {
		pages = PageSequence()
	}
	cp := make([]Kind, len(pages))
	copy(cp, pages)
	return Pager{pages: cp}
}

// Next moves one page forward.
func (p Pager) Next() Pager { return p.moveTo(p.index + 1) }

// Prev moves one page back.
func (p Pager) Prev() Pager { return p.moveTo(p.index - 1) }

// Goto jumps to the 1-based page number, clamped to the sequence.
func (p Pager) Goto(page int) Pager { return p.moveTo(page - 1) }

// Jump moves to kind; an unknown kind leaves the pager unchanged.
func (p Pager) Jump(kind Kind) Pager {
	for i, k := range p.sequence() {
		if k == kind {
			return p.moveTo(i)
		}
	}
	return p
}

func (p Pager) moveTo(index int) Pager {
	if index < 0 {
		index = 0
	}
	if last := p.Len() - 1; index > last {
		index = last
	}
	p.index = index
	return p
}

func (p Pager) sequence() []Kind {
	if len(p.pages) == 0 {
		return PageSequence()
	}
	return p.pages
}

func (p Pager) Current() Kind { return p.sequence()[p.index] }
func (p Pager) Index() int    { return p.index }
func (p Pager) Len() int      { return len(p.sequence()) }
func (p Pager) First() bool   { return p.index == 0 }
func (p Pager) Last() bool    { return p.index == p.Len()-1 }

// PagerState is the serialisable position of a Pager.
type PagerState struct {
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	Kind    Kind `json:"kind"`
	HasPrev bool `json:"has_prev"`
	HasNext bool `json:"has_next"`
}

// State describes the pager for clients.
func (p Pager) State() PagerState {
	return PagerState{
		Page:    p.index + 1,
		Pages:   p.Len(),
		Kind:    p.Current(),
		HasPrev: !p.First(),
		HasNext: !p.Last(),
	}
}

// Book holds every page of a report, built once from the same rows and
// filter so navigation only changes which view is shown.
type Book struct {
	Window Window `json:"window"`
	Pages  []View `json:"pages"`
}

// BuildBook assembles each page of PageSequence.
func BuildBook(rows []Row, filter FilterState, sortState SortState, opts BuildOptions) (Book, error) {
	seq := PageSequence()
	book := Book{Window: opts.Window, Pages: make([]View, 0, len(seq))}
	for _, kind := range seq {
		view, err := BuildKind(rows, kind, filter, sortState, opts)
		if err != nil {
			return Book{}, err
		}
		book.Pages = append(book.Pages, view)
	}
	return book, nil
}

// Page returns the view under the pager.
func (b Book) Page(p Pager) (View, bool) {
	kind := p.Current()
	for _, v := range b.Pages {
		if v.Kind == kind {
			return v, true
		}
	}
	return View{}, false
}
