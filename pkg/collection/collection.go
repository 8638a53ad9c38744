// Package collection provides an insertion-ordered, de-duplicating container
// used to hold the targets of one-to-many relations.
package collection

import (
	"encoding/json"
	"fmt"
	"iter"
	"reflect"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Collection is an ordered set keyed by a content-derived signature.
// The zero value is ready to use. A Collection is not safe for concurrent
// mutation.
type Collection[T any] struct {
	keys  []string
	items map[string]T
}

// New creates a collection holding the given elements in order.
func New[T any](elems ...T) *Collection[T] {
	c := &Collection[T]{}
	for _, e := range elems {
		c.Append(e)
	}
	return c
}

// Append adds v, or replaces the element with the same signature in place.
func (c *Collection[T]) Append(v T) {
	key := Signature(v)
	if c.items == nil {
		c.items = make(map[string]T)
	}
	if _, ok := c.items[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.items[key] = v
}

// Contains reports whether an element with the same signature as v is held.
func (c *Collection[T]) Contains(v T) bool {
	if c == nil || c.items == nil {
		return false
	}
	_, ok := c.items[Signature(v)]
	return ok
}

// Remove deletes the element with the same signature as v. Removing an
// absent element is a no-op.
func (c *Collection[T]) Remove(v T) {
	if !c.Contains(v) {
		return
	}
	key := Signature(v)
	delete(c.items, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of elements.
func (c *Collection[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// All iterates the elements in insertion order.
func (c *Collection[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if c == nil {
			return
		}
		for i, k := range c.keys {
			if !yield(i, c.items[k]) {
				return
			}
		}
	}
}

// ToSlice copies the elements into a new slice in insertion order.
func (c *Collection[T]) ToSlice() []T {
	out := make([]T, 0, c.Len())
	for _, v := range c.All() {
		out = append(out, v)
	}
	return out
}

// MarshalJSON encodes the collection as a JSON array.
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToSlice())
}

// UnmarshalJSON decodes a JSON array into the collection, replacing its contents.
func (c *Collection[T]) UnmarshalJSON(data []byte) error {
	var elems []T
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}
	c.keys, c.items = nil, nil
	for _, e := range elems {
		c.Append(e)
	}
	return nil
}

// Signature derives the de-duplication key of v.
//
// Pointers, maps, channels and funcs are keyed by identity and type name.
// Numbers and booleans are keyed by their literal value. Everything else
// (strings, slices, arrays, structs) is keyed by a hash of its msgpack
// encoding.
func Signature(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("%x||%s", rv.Pointer(), rv.Type().String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.String:
		return hashString(rv.String())
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		// Unencodable values fall back to their printed form.
		return hashString(fmt.Sprintf("%#v", v))
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16) + "||" + rv.Type().String()
}

func hashString(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}

// ElemType returns the element type. It is safe to call on a nil collection.
func (c *Collection[T]) ElemType() reflect.Type {
	return reflect.TypeFor[T]()
}

// AppendValue appends v after asserting it to the element type.
func (c *Collection[T]) AppendValue(v any) error {
	e, ok := v.(T)
	if !ok {
		return fmt.Errorf("collection: cannot append %T to Collection[%s]", v, c.ElemType())
	}
	c.Append(e)
	return nil
}

// Values returns the elements as a slice of any in insertion order.
func (c *Collection[T]) Values() []any {
	out := make([]any, 0, c.Len())
	for _, v := range c.All() {
		out = append(out, v)
	}
	return out
}
