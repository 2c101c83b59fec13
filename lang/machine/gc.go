package machine

// GCState reports whether the heap's automatic collector is armed (spec.md
// section 4.4, "GC state Disabled/Enabled", exposed through the embedding
// API's gc_state call).
type GCState int

const (
	GCEnabled GCState = iota
	GCDisabled
)

// Pin marks a heap-allocated value as reachable regardless of whether the VM
// stack or globals still reference it, for values the host program holds
// onto directly through the embedding API (spec.md section 6, "Embedding
// API": alloc_array/alloc_object/alloc_string return values the host may
// keep across calls). Unpin releases that hold; a value pinned N times needs
// N unpins before the GC may reclaim it.
func (h *Heap) Pin(v Value) {
	if !v.isBoxed() || v.Tag() == TagNull || v.Tag() == TagBoolean {
		return
	}
	if h.pinned == nil {
		h.pinned = map[Value]int{}
	}
	h.pinned[v]++
}

func (h *Heap) Unpin(v Value) {
	if h.pinned == nil {
		return
	}
	if n := h.pinned[v]; n <= 1 {
		delete(h.pinned, v)
	} else {
		h.pinned[v] = n - 1
	}
}

// mark walks v and everything reachable from it, setting reached[poolKey].
func (h *Heap) mark(v Value, reached map[poolKey]bool) {
	if !v.isBoxed() {
		return
	}
	switch v.Tag() {
	case TagString:
		reached[poolKey{kindString, v.index()}] = true
	case TagArray:
		k := poolKey{kindArray, v.index()}
		if reached[k] {
			return
		}
		reached[k] = true
		for _, e := range h.Array(v) {
			h.mark(e, reached)
		}
	case TagObject:
		k := poolKey{kindObject, v.index()}
		if reached[k] {
			return
		}
		reached[k] = true
		obj := h.Object(v)
		for _, key := range obj.order {
			if fv, ok := obj.get(key); ok {
				h.mark(fv, reached)
			}
		}
	case TagBox:
		k := poolKey{kindBox, v.index()}
		if reached[k] {
			return
		}
		reached[k] = true
		h.mark(h.BoxGet(v), reached)
	case TagFunction:
		k := poolKey{kindClosure, v.index()}
		if reached[k] {
			return
		}
		reached[k] = true
		for _, cap := range h.Closure(v).captures {
			h.mark(cap, reached)
		}
	}
}

type poolKind int

const (
	kindString poolKind = iota
	kindArray
	kindObject
	kindBox
	kindClosure
)

type poolKey struct {
	kind poolKind
	idx  int
}

// Collect runs a mark-and-sweep pass: roots (typically the VM's globals plus
// every register in every live call frame) and any host-pinned values are
// marked, then every pool slot not reached is released back to its
// free-list for reuse (spec.md section 4.4, "Mark-and-sweep algorithm").
// Collect is a no-op when state is GCDisabled.
func (h *Heap) Collect(roots []Value, state GCState) {
	if state == GCDisabled {
		return
	}
	reached := map[poolKey]bool{}
	for _, r := range roots {
		h.mark(r, reached)
	}
	for v := range h.pinned {
		h.mark(v, reached)
	}

	// Strings need a special sweep: a released slot's canonical intern-table
	// entry must go with it, or a later InternString of the same text would
	// resolve to a stale index a future alloc has since overwritten.
	for i, alive := range h.strings.alive {
		if alive && !reached[poolKey{kindString, i}] {
			delete(h.intern, h.strings.slots[i])
			h.strings.release(i)
		}
	}
	h.sweep(h.arrays, kindArray, reached)
	h.sweep(h.objects, kindObject, reached)
	h.sweep(h.boxes, kindBox, reached)
	h.sweep(h.closures, kindClosure, reached)
	h.allocated = 0
}

func sweepPool[T any](p *pool[T], kind poolKind, reached map[poolKey]bool) {
	for i := range p.slots {
		if !p.alive[i] {
			continue
		}
		if !reached[poolKey{kind, i}] {
			p.release(i)
		}
	}
}

// sweep is a thin non-generic wrapper so Collect can loop over heterogeneous
// pools without repeating the generic instantiation at each call site.
func (h *Heap) sweep(p any, kind poolKind, reached map[poolKey]bool) {
	switch pp := p.(type) {
	case *pool[string]:
		sweepPool(pp, kind, reached)
	case *pool[[]Value]:
		sweepPool(pp, kind, reached)
	case *pool[*Object]:
		sweepPool(pp, kind, reached)
	case *pool[Value]:
		sweepPool(pp, kind, reached)
	case *pool[*Closure]:
		sweepPool(pp, kind, reached)
	}
}

// Stats reports the current count of live slots per pool, for diagnostics
// (see VM.Stats).
type Stats struct {
	Strings, Arrays, Objects, Boxes, Closures int
}

func (h *Heap) Stats() Stats {
	count := func(alive []bool) int {
		n := 0
		for _, a := range alive {
			if a {
				n++
			}
		}
		return n
	}
	return Stats{
		Strings:  count(h.strings.alive),
		Arrays:   count(h.arrays.alive),
		Objects:  count(h.objects.alive),
		Boxes:    count(h.boxes.alive),
		Closures: count(h.closures.alive),
	}
}
