package value

// Table is an open-addressed hash map keyed by interned strings, with
// tombstoned deletes. It is the structure backing the string-interning pool
// (spec §4.2); it is deliberately hand-rolled rather than built on
// dolthub/swiss because its exact probing/tombstone/growth contract
// (findString, load factor 0.75, power-of-two capacities starting at 8) is
// itself a tested property of this repo (see DESIGN.md).
type Table struct {
	count    int // occupied slots: live entries plus tombstones
	entries  []tableEntry
}

type tableEntry struct {
	key   *ObjString // nil means an empty slot, unless tombstone is set
	value Value
	tombstone bool
}

const tableMaxLoad = 0.75

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Get returns the value associated with key, if present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if t.count == 0 && len(t.entries) == 0 {
		return nil, false
	}
	e := t.find(key)
	if e.key == nil {
		return nil, false
	}
	return e.value, true
}

// Set inserts or updates key's value. It returns true if key was not already
// present.
func (t *Table) Set(key *ObjString, v Value) bool {
	if float64(len(t.entries))*tableMaxLoad < float64(t.count+1) {
		t.grow(growCapacity(len(t.entries)))
	}

	e := t.find(key)
	isNew := e.key == nil
	if isNew && !e.tombstone {
		t.count++
	}
	e.key = key
	e.value = v
	e.tombstone = false
	return isNew
}

// Delete tombstones key's slot so that later probes following the same
// chain still find entries placed after it. It returns true if key was
// present.
func (t *Table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.find(key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = nil
	e.tombstone = true
	return true
}

// AddAll copies every live entry of src into t.
func (t *Table) AddAll(src *Table) {
	for i := range src.entries {
		e := &src.entries[i]
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// findString probes the table for a string with the given characters and
// precomputed hash, without needing to allocate a candidate *ObjString first.
// It is the fast path the interner uses to decide whether to reuse an
// existing string object or allocate a new one.
func (t *Table) findString(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if !e.tombstone {
				return nil
			}
		} else if e.key.hash == hash && e.key.chars == chars {
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

// find locates the slot key belongs in: an existing entry with that key, the
// first tombstone seen along the probe chain (reused on insert), or the
// first truly empty slot.
func (t *Table) find(key *ObjString) *tableEntry {
	mask := uint32(len(t.entries) - 1)
	idx := key.hash & mask
	var tombstone *tableEntry
	for {
		e := &t.entries[idx]
		switch {
		case e.key == nil:
			if e.tombstone {
				if tombstone == nil {
					tombstone = e
				}
			} else {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
		case e.key == key:
			return e
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow(newCap int) {
	newEntries := make([]tableEntry, newCap)
	oldEntries := t.entries
	t.entries = newEntries
	t.count = 0
	for i := range oldEntries {
		e := &oldEntries[i]
		if e.key == nil {
			continue
		}
		dst := t.find(e.key)
		dst.key = e.key
		dst.value = e.value
		t.count++
	}
}

func growCapacity(cap int) int {
	if cap < 8 {
		return 8
	}
	return cap * 2
}
