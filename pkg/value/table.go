package value

// Table is an open-addressed hash table keyed by interned strings:
// linear probing, a 75% max load factor, and tombstones (a nil Key
// with a true Value) marking deleted slots so probe chains stay intact
// across deletes. Every class method table, every instance field
// table, and the string interner's set are one of these; the VM's
// globals live in a separate swiss.Map keyed by Go strings.
type Table struct {
	count    int // live entries + tombstones
	entries  []entry
}

type entry struct {
	Key   *ObjString
	Value Value
}

const tableMaxLoad = 0.75

// NewTable returns an empty table; its backing array is not allocated
// until the first Set grows it, so a table that never receives an
// entry costs nothing beyond the struct itself.
func NewTable() *Table {
	return &Table{}
}

// Count reports the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	n := 0
	for _, e := range t.entries {
		if e.Key != nil {
			n++
		}
	}
	return n
}

func findEntry(entries []entry, key *ObjString) *entry {
	capacity := uint32(len(entries))
	index := key.Hash & (capacity - 1)
	var tombstone *entry
	for {
		e := &entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				// Truly empty slot: return the first tombstone we
				// passed, if any, so re-inserting reuses its slot.
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			// Tombstone: Key nil, Value true.
			if tombstone == nil {
				tombstone = e
			}
		} else if e.Key == key {
			return e
		}
		index = (index + 1) & (capacity - 1)
	}
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]entry, capacity)
	for i := range entries {
		entries[i] = entry{Key: nil, Value: Nil}
	}

	newCount := 0
	for _, e := range t.entries {
		if e.Key == nil {
			continue
		}
		dest := findEntry(entries, e.Key)
		dest.Key = e.Key
		dest.Value = e.Value
		newCount++
	}

	t.entries = entries
	t.count = newCount
}

// Set inserts or overwrites key's value, growing the table first if
// doing so would push the load factor past 75%. It reports whether key
// was a brand-new entry.
func (t *Table) Set(key *ObjString, v Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		capacity := growCapacity(len(t.entries))
		t.adjustCapacity(capacity)
	}

	e := findEntry(t.entries, key)
	isNewKey := e.Key == nil
	if isNewKey && e.Value.IsNil() {
		t.count++
	}

	e.Key = key
	e.Value = v
	return isNewKey
}

// Get looks up key, reporting whether it is present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return Nil, false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return Nil, false
	}
	return e.Value, true
}

// Delete removes key, leaving a tombstone (nil Key, true Value) behind
// so later probes looking for a different colliding key keep working.
func (t *Table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = Bool(true)
	return true
}

// AddAll copies every entry of src into t, used for class method-table
// inheritance: a subclass starts with its superclass's methods, then
// OP_METHOD overwrites/adds its own.
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if e.Key != nil {
			t.Set(e.Key, e.Value)
		}
	}
}

// FindString looks up a string by its raw bytes and hash without first
// having an *ObjString in hand — the operation the string interner
// needs and the reason this table supports probing by content instead
// of only by pointer.
func (t *Table) FindString(s string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash & (capacity - 1)
	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				return nil
			}
		} else if e.Key.Hash == hash && e.Key.Bytes == s {
			return e.Key
		}
		index = (index + 1) & (capacity - 1)
	}
}

// RemoveUnreachable deletes every key in t whose Marked bit is unset.
// Called on the string interner's table during sweep so interned
// strings reachable from nowhere else don't keep the table growing
// forever.
func (t *Table) RemoveUnreachable() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != nil && !e.Key.Marked() {
			e.Key = nil
			e.Value = Bool(true)
		}
	}
}

// Each calls fn for every live entry, in arbitrary order. Used by the
// GC to mark every key and value reachable through a table (method
// tables, field tables).
func (t *Table) Each(fn func(key *ObjString, v Value)) {
	for _, e := range t.entries {
		if e.Key != nil {
			fn(e.Key, e.Value)
		}
	}
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}
