package lifecycle

import "fmt"

// As narrows the opaque instance returned by Acquire to a concrete type.
// It passes Acquire errors through unchanged, so it composes directly:
//
//	rt, err := lifecycle.As[ModelRuntime](m.Acquire(ctx, "chat_model"))
func As[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("component instance is %T, want %T", v, zero)
	}
	return t, nil
}
