package internal

import (
	"context"
	"fmt"
)

// CtxKey is a context key bound to the type of the value stored under it, so lookups never need an unchecked
// type assertion at the call site.
type CtxKey[T any] struct {
	name string
}

// NewCtxKey creates a typed context key with a human readable name.
func NewCtxKey[T any](name string) CtxKey[T] {
	return CtxKey[T]{name: name}
}

func (k CtxKey[T]) String() string {
	return fmt.Sprintf("ctxKey[%T](%s)", *new(T), k.name)
}

// WithValue returns a copy of ctx carrying value under key.
func WithValue[T any](ctx context.Context, key CtxKey[T], value T) context.Context {
	return context.WithValue(ctx, key, value)
}

// Value returns the value stored under key, and false when ctx does not carry one.
func Value[T any](ctx context.Context, key CtxKey[T]) (T, bool) {
	value, ok := ctx.Value(key).(T)
	return value, ok
}
