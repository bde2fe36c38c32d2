package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// Result is the envelope every facade operation returns. Data is nil on
// failure and for operations that produce nothing.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Empty is the data type of operations that only report success.
type Empty struct{}

// Error codes carried in Result.Code.
const (
	CodeNotFound    = "not_found"
	CodeInvalid     = "invalid_input"
	CodeUnavailable = "unavailable"
	CodeTimeout     = "timeout"
	CodeCanceled    = "canceled"
	CodeInternal    = "internal"
)

func succeed[T any](v T) Result[T] {
	return Result[T]{Success: true, Data: &v}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Error: err.Error(), Code: errorCode(err)}
}

// Failure wraps err in a failed Result. Transports use it for errors raised
// before an operation runs.
func Failure(err error) Result[Empty] {
	return failed[Empty](err)
}

// Err returns the failure as an error, or nil on success.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return errors.New(r.Error)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, types.ErrInvalidInput):
		return CodeInvalid
	case errors.Is(err, types.ErrMigrationTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, types.ErrBackendUnavailable),
		errors.Is(err, types.ErrCorpusNotFound),
		errors.Is(err, types.ErrCorpusMalformed),
		errors.Is(err, types.ErrStoreUnavailable),
		errors.Is(err, types.ErrStoreClosed):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// call resolves the backend, runs fn on it and wraps the outcome. A panic
// in fn becomes a failed Result.
func call[T any](ctx context.Context, s *Service, op string, fn func(ctx context.Context, b types.Backend) (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("operation panicked", "op", op, "panic", r)
			res = failed[T](fmt.Errorf("%s: internal error: %v", op, r))
		}
	}()

	b, err := s.backend(ctx)
	if err != nil {
		return failed[T](err)
	}
	v, err := fn(ctx, b)
	if err != nil {
		s.logger.Debug("operation failed", "op", op, "error", err)
		return failed[T](err)
	}
	return succeed(v)
}

// exec is call for operations without data.
func exec(ctx context.Context, s *Service, op string, fn func(ctx context.Context, b types.Backend) error) Result[Empty] {
	res := call(ctx, s, op, func(ctx context.Context, b types.Backend) (Empty, error) {
		return Empty{}, fn(ctx, b)
	})
	res.Data = nil
	return res
}
