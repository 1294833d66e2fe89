package lambda

import (
	"context"
	"errors"
)

// ErrFunctionNotFound is returned by UpdateFunction when no function with
// the given name exists; the caller falls back to CreateFunction.
var ErrFunctionNotFound = errors.New("lambda function not found")

// FunctionSpec fully describes one deployable function: the packaged code
// plus the runtime configuration read by the generated handler.
type FunctionSpec struct {
	Name         string
	Role         string
	Handler      string
	Runtime      string
	TimeoutSec   int64
	MemorySizeMB int64
	ZipFile      []byte
	Environment  map[string]string
	Tags         map[string]string
}

// Registry abstracts the function control plane so the deployment controller
// can be driven against fakes in tests.
type Registry interface {
	// UpdateFunction updates code and configuration in place and returns the
	// function ARN, or ErrFunctionNotFound.
	UpdateFunction(ctx context.Context, spec FunctionSpec) (string, error)
	// CreateFunction creates the function from scratch and returns its ARN.
	CreateFunction(ctx context.Context, spec FunctionSpec) (string, error)
}
