package export

// Field is one named value of a Record.
type Field struct {
	Name  string
	Value interface{}
}

// Record is a flat, ordered mapping from column name to a primitive value
// (string, number, bool or nil). It is the unit consumed by ConvertToCSV.
// Field order matters for the first record of a batch only: its keys become
// the header row.
type Record []Field

// Keys returns the column names in insertion order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for _, f := range r {
		keys = append(keys, f.Name)
	}
	return keys
}

// Get returns the value stored under name and whether it was present.
func (r Record) Get(name string) (interface{}, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set stores value under name, replacing an existing field in place or
// appending a new one at the end.
func (r Record) Set(name string, value interface{}) Record {
	for i, f := range r {
		if f.Name == name {
			r[i].Value = value
			return r
		}
	}
	return append(r, Field{Name: name, Value: value})
}

// valueAt returns the value for the header column at position i, taking the
// positional fast path when the record shares the header's layout.
func (r Record) valueAt(i int, name string) interface{} {
	if i < len(r) && r[i].Name == name {
		return r[i].Value
	}
	v, _ := r.Get(name)
	return v
}
