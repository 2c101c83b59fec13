package machine

import "github.com/dolthub/swiss"

// pool is a generic, index-stable arena with free-list reuse: once an index
// is handed out it never changes meaning until the slot is collected and
// reused, which is what lets a boxed Value's 48-bit payload be a plain pool
// index rather than a pointer (spec.md section 4.4, "Heap"). Reusing Go's
// own garbage collector for the backing slice would be unsafe here: a
// resurrected slot must be reachable again only through a fresh index, never
// through a stale Value that still encodes the old index.
type pool[T any] struct {
	slots []T
	alive []bool
	free  []int // indices available for reuse, most-recently-freed last
}

func newPool[T any]() *pool[T] { return &pool[T]{} }

// alloc reserves a slot, preferring a freed one, and returns its index.
func (p *pool[T]) alloc(v T) int {
	if n := len(p.free); n > 0 {
		i := p.free[n-1]
		p.free = p.free[:n-1]
		p.slots[i] = v
		p.alive[i] = true
		return i
	}
	p.slots = append(p.slots, v)
	p.alive = append(p.alive, true)
	return len(p.slots) - 1
}

func (p *pool[T]) get(i int) T { return p.slots[i] }

func (p *pool[T]) set(i int, v T) { p.slots[i] = v }

func (p *pool[T]) isAlive(i int) bool { return i >= 0 && i < len(p.alive) && p.alive[i] }

// release marks index i available for reuse by a future alloc and zeroes the
// slot, so the pool no longer holds on to its old value; alive gates whether
// the GC or the embedding API considers it live.
func (p *pool[T]) release(i int) {
	var zero T
	p.alive[i] = false
	p.slots[i] = zero
	p.free = append(p.free, i)
}

// Object is a Tack object: an ordered-by-insertion string-keyed map. It uses
// dolthub/swiss (replace-pinned to github.com/mna/swiss in go.mod) for O(1)
// amortized field access, since Tack objects are expected to be used as
// both records and ad hoc dictionaries (spec.md GLOSSARY, "Object").
type Object struct {
	fields *swiss.Map[string, Value]
	order  []string // insertion order, for for-loop key/entry iteration
}

func newObject(size int) *Object {
	return &Object{fields: swiss.NewMap[string, Value](uint32(size))}
}

func (o *Object) get(key string) (Value, bool) { return o.fields.Get(key) }

func (o *Object) set(key string, v Value) {
	if _, existed := o.fields.Get(key); !existed {
		o.order = append(o.order, key)
	}
	o.fields.Put(key, v)
}

func (o *Object) len() int { return o.fields.Count() }

// Get, Set, Len and Keys are the exported counterparts of get/set/len/order,
// for host code (e.g. internal/stdlib) that holds an *Object via VM.Heap and
// has no access to the package-private fields.
func (o *Object) Get(key string) (Value, bool) { return o.get(key) }
func (o *Object) Set(key string, v Value)      { o.set(key, v) }
func (o *Object) Len() int                     { return o.len() }
func (o *Object) Keys() []string               { return o.order }

// Closure is a Tack function value: a reference to its compiled code plus
// the Boxes it captured from enclosing functions at creation time (spec.md
// section 3, "Closure").
type Closure struct {
	proto    *funcProto
	captures []Value // Box values, parallel to proto.fragment.Captures
}

// Heap owns every Tack-managed reference value: strings, arrays, objects,
// closures, and boxes. Payload bits in a Value never hold a Go pointer,
// only an index into one of these pools, so Go's own garbage collector
// never needs to trace through a Value (spec.md section 4.4).
type Heap struct {
	strings   *pool[string]
	arrays    *pool[[]Value]
	objects   *pool[*Object]
	closures  *pool[*Closure]
	boxes     *pool[Value]
	intern    map[string]int // canonical string -> strings pool index
	pinned    map[Value]int  // host-held reference -> pin refcount
	allocated uint64         // running alloc count, drives the GC trigger
	gcEvery   uint64         // 0 disables automatic collection
}

// NewHeap creates an empty heap. gcEvery, if non-zero, triggers an automatic
// Collect after that many allocations (spec.md section 8, scenario S6).
func NewHeap(gcEvery uint64) *Heap {
	return &Heap{
		strings:  newPool[string](),
		arrays:   newPool[[]Value](),
		objects:  newPool[*Object](),
		closures: newPool[*Closure](),
		boxes:    newPool[Value](),
		intern:   map[string]int{},
		gcEvery:  gcEvery,
	}
}

func (h *Heap) track() {
	h.allocated++
}

// InternString returns the canonical Value for s, allocating it in the
// string pool only the first time s is seen (spec.md section 4.4, "String
// interning": every interned copy of the same text shares one pool index;
// EQUAL still compares strings by content, see valuesEqual).
func (h *Heap) InternString(s string) Value {
	if i, ok := h.intern[s]; ok {
		return box(TagString, uint64(i))
	}
	i := h.strings.alloc(s)
	h.intern[s] = i
	h.track()
	return box(TagString, uint64(i))
}

// NewTransientString allocates a string that is NOT interned, for values
// produced at runtime by concatenation (spec.md section 3: "transient
// strings produced by concatenation are not interned, to avoid polluting
// the intern table with one-off values").
func (h *Heap) NewTransientString(s string) Value {
	i := h.strings.alloc(s)
	h.track()
	return box(TagString, uint64(i))
}

func (h *Heap) String(v Value) string { return h.strings.get(v.index()) }

func (h *Heap) NewArray(elems []Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	i := h.arrays.alloc(cp)
	h.track()
	return box(TagArray, uint64(i))
}

func (h *Heap) Array(v Value) []Value { return h.arrays.get(v.index()) }

func (h *Heap) SetArray(v Value, elems []Value) { h.arrays.set(v.index(), elems) }

func (h *Heap) NewObject(size int) Value {
	i := h.objects.alloc(newObject(size))
	h.track()
	return box(TagObject, uint64(i))
}

func (h *Heap) Object(v Value) *Object { return h.objects.get(v.index()) }

func (h *Heap) NewBox(v Value) Value {
	i := h.boxes.alloc(v)
	h.track()
	return box(TagBox, uint64(i))
}

func (h *Heap) BoxGet(v Value) Value { return h.boxes.get(v.index()) }

func (h *Heap) BoxSet(v Value, newVal Value) { h.boxes.set(v.index(), newVal) }

func (h *Heap) NewClosure(c *Closure) Value {
	i := h.closures.alloc(c)
	h.track()
	return box(TagFunction, uint64(i))
}

func (h *Heap) Closure(v Value) *Closure { return h.closures.get(v.index()) }

// shouldCollect reports whether an automatic GC pass is due.
func (h *Heap) shouldCollect() bool {
	return h.gcEvery > 0 && h.allocated >= h.gcEvery
}
