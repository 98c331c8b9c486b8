package value

// MapBuilder assembles a map value incrementally while keeping insertion order.
type MapBuilder struct {
	ents  []Entry
	index map[string]int
}

// NewMapBuilder returns a builder sized for n entries.
func NewMapBuilder(n int) *MapBuilder {
	return &MapBuilder{
		ents:  make([]Entry, 0, n),
		index: make(map[string]int, n),
	}
}

// Set stores val under key. It reports whether key was new; an existing key keeps
// its position and takes the new value.
func (b *MapBuilder) Set(key string, val Value) bool {
	if i, ok := b.index[key]; ok {
		b.ents[i].Value = val
		return false
	}

	b.index[key] = len(b.ents)
	b.ents = append(b.ents, Entry{Key: key, Value: val})

	return true
}

// Len returns the number of distinct keys added so far.
func (b *MapBuilder) Len() int { return len(b.ents) }

// Value returns the built map. The builder must not be used afterwards.
func (b *MapBuilder) Value() Value {
	return Value{kind: KindMap, ents: b.ents}
}

// SetBuilder assembles a set value, dropping duplicates.
type SetBuilder struct {
	items []Value
	index hashIndex
}

// NewSetBuilder returns a builder sized for n elements.
func NewSetBuilder(n int) *SetBuilder {
	return &SetBuilder{
		items: make([]Value, 0, n),
		index: newHashIndex(n),
	}
}

// Add inserts item and reports whether it was not already present.
func (b *SetBuilder) Add(item Value) bool {
	if !b.index.insert(item) {
		return false
	}
	b.items = append(b.items, item)

	return true
}

// Len returns the number of distinct elements added so far.
func (b *SetBuilder) Len() int { return len(b.items) }

// Value returns the built set. The builder must not be used afterwards.
func (b *SetBuilder) Value() Value {
	return Value{kind: KindSet, list: b.items}
}

// hashIndex is a multimap from Value.Hash to the values carrying that hash.
type hashIndex map[uint64][]Value

func newHashIndex(n int) hashIndex {
	return make(hashIndex, n)
}

// insert adds v unless an equal value is already indexed.
func (h hashIndex) insert(v Value) bool {
	key := v.Hash()
	for _, existing := range h[key] {
		if existing.Equal(v) {
			return false
		}
	}
	h[key] = append(h[key], v)

	return true
}

func (h hashIndex) contains(v Value) bool {
	for _, existing := range h[v.Hash()] {
		if existing.Equal(v) {
			return true
		}
	}

	return false
}
