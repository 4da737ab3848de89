package utils

import "github.com/sony/gobreaker"

// ExecuteWithBreaker runs fn through the circuit breaker while keeping the
// caller's result type instead of gobreaker's interface{}.
func ExecuteWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T

	out, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}

	return out.(T), nil
}
