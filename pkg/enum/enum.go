package enum

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	mutex       sync.RWMutex
	enumManager = map[reflect.Type]any{}
)

type enum[T ~string] struct {
	toEnum map[string]T
	values []T
}

// New registers value as a member of its enum type and returns it, so enum
// members are declared as package-level variables.
func New[T ~string](value T) T {
	mutex.Lock()
	defer mutex.Unlock()

	t := reflect.TypeOf(value)
	e, ok := enumManager[t].(*enum[T])
	if !ok {
		e = &enum[T]{toEnum: make(map[string]T)}
		enumManager[t] = e
	}

	if _, ok := e.toEnum[string(value)]; !ok {
		e.values = append(e.values, value)
	}
	e.toEnum[string(value)] = value

	return value
}

func ToEnum[T ~string](s string) (T, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	var defaultT T
	e, ok := enumManager[reflect.TypeOf(defaultT)].(*enum[T])
	if !ok {
		return defaultT, fmt.Errorf("not found enum type %T", defaultT)
	}

	t, ok := e.toEnum[s]
	if !ok {
		return defaultT, fmt.Errorf("not found value %s in enum %T", s, defaultT)
	}

	return t, nil
}

// Values returns members of T in registration order.
func Values[T ~string]() []T {
	mutex.RLock()
	defer mutex.RUnlock()

	var defaultT T
	e, ok := enumManager[reflect.TypeOf(defaultT)].(*enum[T])
	if !ok {
		return nil
	}

	return append([]T(nil), e.values...)
}
