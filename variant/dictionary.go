package variant

// Dictionary is an insertion-ordered map keyed by Values. Keys compare with
// Value.Equal, so INT 1 and REAL 1.0 address the same entry.
type Dictionary struct {
	keys   []Value
	values []Value
}

func (d *Dictionary) index(key Value) int {
	for i, k := range d.keys {
		if k.Equal(key) {
			return i
		}
	}
	return -1
}

func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

func (d *Dictionary) Get(key Value) (Value, bool) {
	if d == nil {
		return NewNil(), false
	}
	if i := d.index(key); i >= 0 {
		return d.values[i], true
	}
	return NewNil(), false
}

func (d *Dictionary) Has(key Value) bool {
	return d != nil && d.index(key) >= 0
}

func (d *Dictionary) Set(key, value Value) {
	if i := d.index(key); i >= 0 {
		d.values[i] = value
		return
	}
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
}

func (d *Dictionary) Erase(key Value) bool {
	i := d.index(key)
	if i < 0 {
		return false
	}
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.values = append(d.values[:i], d.values[i+1:]...)
	return true
}

func (d *Dictionary) Clear() {
	d.keys = nil
	d.values = nil
}

func (d *Dictionary) Keys() []Value {
	if d == nil {
		return nil
	}
	return append([]Value(nil), d.keys...)
}

func (d *Dictionary) Values() []Value {
	if d == nil {
		return nil
	}
	return append([]Value(nil), d.values...)
}

// Each visits entries in insertion order until fn returns false.
func (d *Dictionary) Each(fn func(key, value Value) bool) {
	if d == nil {
		return
	}
	for i := range d.keys {
		if !fn(d.keys[i], d.values[i]) {
			return
		}
	}
}
