package ygggo_mockdb

import (
	"fmt"
	"reflect"
)

type providerParameter interface {
	comparable
	DatabaseParameter
}

// parameterList is the ordered parameter store shared by the providers.
// It only accepts parameters of its own provider type T.
type parameterList[T providerParameter] struct {
	provider string
	items    []T
}

func (l *parameterList[T]) cast(p DatabaseParameter) (T, error) {
	var zero T
	if p == nil {
		return zero, invalidCast("nil parameter added to %s parameter collection", l.provider)
	}
	v, ok := p.(T)
	if !ok {
		return zero, invalidCast("%T is not a %s parameter", p, l.provider)
	}
	return v, nil
}

// Len returns the number of parameters.
func (l *parameterList[T]) Len() int { return len(l.items) }

// Add appends p and returns its index. A parameter with the same name is replaced in place.
func (l *parameterList[T]) Add(p DatabaseParameter) (int, error) {
	v, err := l.cast(p)
	if err != nil {
		return -1, err
	}
	if name := v.Name(); name != "" {
		if idx := l.IndexOf(name); idx >= 0 {
			l.items[idx] = v
			return idx, nil
		}
	}
	l.items = append(l.items, v)
	return len(l.items) - 1, nil
}

// AddRange adds every parameter, stopping at the first failure.
func (l *parameterList[T]) AddRange(ps ...DatabaseParameter) error {
	for _, p := range ps {
		if _, err := l.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// Set replaces the parameter called name, or appends p when there is none.
func (l *parameterList[T]) Set(name string, p DatabaseParameter) error {
	v, err := l.cast(p)
	if err != nil {
		return err
	}
	if idx := l.IndexOf(name); idx >= 0 {
		l.items[idx] = v
		return nil
	}
	l.items = append(l.items, v)
	return nil
}

// SetAt replaces the parameter at index.
func (l *parameterList[T]) SetAt(index int, p DatabaseParameter) error {
	v, err := l.cast(p)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(l.items) {
		return outOfRange("parameter index %d (count %d)", index, len(l.items))
	}
	l.items[index] = v
	return nil
}

// Insert places p at index, shifting later parameters.
func (l *parameterList[T]) Insert(index int, p DatabaseParameter) error {
	v, err := l.cast(p)
	if err != nil {
		return err
	}
	if index < 0 || index > len(l.items) {
		return outOfRange("parameter index %d (count %d)", index, len(l.items))
	}
	var zero T
	l.items = append(l.items, zero)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = v
	return nil
}

// At returns the parameter at index.
func (l *parameterList[T]) At(index int) (DatabaseParameter, error) {
	if index < 0 || index >= len(l.items) {
		return nil, outOfRange("parameter index %d (count %d)", index, len(l.items))
	}
	return l.items[index], nil
}

// Get returns the parameter called name.
func (l *parameterList[T]) Get(name string) (DatabaseParameter, bool) {
	idx := l.IndexOf(name)
	if idx < 0 {
		return nil, false
	}
	return l.items[idx], true
}

// IndexOf returns the position of the parameter called name, or -1.
func (l *parameterList[T]) IndexOf(name string) int {
	for i, p := range l.items {
		if p.Name() == name {
			return i
		}
	}
	return -1
}

// IndexOfParameter returns the position of p itself, or -1.
func (l *parameterList[T]) IndexOfParameter(p DatabaseParameter) int {
	v, err := l.cast(p)
	if err != nil {
		return -1
	}
	for i, item := range l.items {
		if item == v {
			return i
		}
	}
	return -1
}

// Contains reports whether a parameter called name exists.
func (l *parameterList[T]) Contains(name string) bool { return l.IndexOf(name) >= 0 }

// ContainsValue reports whether any parameter currently holds value.
func (l *parameterList[T]) ContainsValue(value any) bool {
	for _, p := range l.items {
		if reflect.DeepEqual(p.Value(), value) {
			return true
		}
	}
	return false
}

// Remove deletes p. Removing a parameter that is not present is a no-op.
func (l *parameterList[T]) Remove(p DatabaseParameter) error {
	if _, err := l.cast(p); err != nil {
		return err
	}
	if idx := l.IndexOfParameter(p); idx >= 0 {
		l.items = append(l.items[:idx], l.items[idx+1:]...)
	}
	return nil
}

// RemoveAt deletes the parameter at index.
func (l *parameterList[T]) RemoveAt(index int) error {
	if index < 0 || index >= len(l.items) {
		return outOfRange("parameter index %d (count %d)", index, len(l.items))
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return nil
}

// RemoveNamed deletes the parameter called name, if any.
func (l *parameterList[T]) RemoveNamed(name string) {
	if idx := l.IndexOf(name); idx >= 0 {
		l.items = append(l.items[:idx], l.items[idx+1:]...)
	}
}

// Clear removes every parameter.
func (l *parameterList[T]) Clear() { l.items = nil }

// All returns a copy of the parameters in order.
func (l *parameterList[T]) All() []DatabaseParameter {
	out := make([]DatabaseParameter, len(l.items))
	for i, p := range l.items {
		out[i] = p
	}
	return out
}

func (l *parameterList[T]) String() string {
	return fmt.Sprintf("%s parameters(%d)", l.provider, len(l.items))
}

// MockParameterCollection is the parameter collection of MockCommand.
type MockParameterCollection struct {
	parameterList[*MockParameter]
}

// NewMockParameterCollection returns an empty collection.
func NewMockParameterCollection() *MockParameterCollection {
	return &MockParameterCollection{parameterList[*MockParameter]{provider: "mock"}}
}

// Parameters returns the typed parameters in order.
func (c *MockParameterCollection) Parameters() []*MockParameter {
	return append([]*MockParameter(nil), c.items...)
}
