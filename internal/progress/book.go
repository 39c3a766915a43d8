package progress

// Summary counts filled entries for progress counters ("3 of 7 objectives filled").
type Summary struct {
	Filled int
	Total  int
}

// Done reports whether every entry is filled.
func (s Summary) Done() bool { return s.Total > 0 && s.Filled == s.Total }

// Book is an insertion-ordered keyed store of drafts.
type Book[K comparable] struct {
	order  []K
	drafts map[K]Draft
}

// NewBook returns an empty book.
func NewBook[K comparable]() *Book[K] {
	return &Book[K]{drafts: make(map[K]Draft)}
}

// Get returns the draft stored under k.
func (b *Book[K]) Get(k K) (Draft, bool) {
	d, ok := b.drafts[k]
	return d, ok
}

// Put stores d under k, appending new keys at the end.
func (b *Book[K]) Put(k K, d Draft) {
	if _, ok := b.drafts[k]; !ok {
		b.order = append(b.order, k)
	}
	b.drafts[k] = d
}

// Ensure stores d under k only if k is absent, and returns the stored draft.
func (b *Book[K]) Ensure(k K, d Draft) Draft {
	if cur, ok := b.drafts[k]; ok {
		return cur
	}
	b.Put(k, d)
	return d
}

// Update applies fn to the draft under k. It reports false if k is absent.
func (b *Book[K]) Update(k K, fn func(*Draft)) bool {
	d, ok := b.drafts[k]
	if !ok {
		return false
	}
	fn(&d)
	b.drafts[k] = d
	return true
}

// Delete removes k.
func (b *Book[K]) Delete(k K) {
	if _, ok := b.drafts[k]; !ok {
		return
	}
	delete(b.drafts, k)
	for i, key := range b.order {
		if key == k {
			b.order = append(b.order[:i:i], b.order[i+1:]...)
			break
		}
	}
}

// DeleteWhere removes every key matching pred and returns how many were removed.
func (b *Book[K]) DeleteWhere(pred func(K) bool) int {
	kept := b.order[:0:0]
	n := 0
	for _, k := range b.order {
		if pred(k) {
			delete(b.drafts, k)
			n++
			continue
		}
		kept = append(kept, k)
	}
	b.order = kept
	return n
}

// Keys returns keys in insertion order.
func (b *Book[K]) Keys() []K {
	return append([]K(nil), b.order...)
}

// Len returns the number of drafts.
func (b *Book[K]) Len() int { return len(b.order) }

// Summarize counts complete drafts among keys matching pred; a nil pred matches all.
func (b *Book[K]) Summarize(pred func(K) bool) Summary {
	var s Summary
	for _, k := range b.order {
		if pred != nil && !pred(k) {
			continue
		}
		s.Total++
		if b.drafts[k].Complete() {
			s.Filled++
		}
	}
	return s
}

// Clone returns an independent copy of the book.
func (b *Book[K]) Clone() *Book[K] {
	nb := &Book[K]{
		order:  append([]K(nil), b.order...),
		drafts: make(map[K]Draft, len(b.drafts)),
	}
	for k, d := range b.drafts {
		nb.drafts[k] = d
	}
	return nb
}
