package requestum

import (
	"reflect"
	"sync"
)

// defaultInstance returns the cached default value of T, creating it on
// first use. Pointer request types get a pointer to a zero-valued
// element so the handler never sees a nil request. Concurrent first
// calls may both construct an instance; LoadOrStore keeps exactly one.
func defaultInstance[T any](cache *sync.Map) T {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := cache.Load(t); ok {
		return v.(T)
	}
	var inst T
	if t.Kind() == reflect.Pointer {
		inst = reflect.New(t.Elem()).Interface().(T)
	}
	v, _ := cache.LoadOrStore(t, inst)
	return v.(T)
}
