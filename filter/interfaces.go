package filter

import (
	"context"

	"github.com/s0up4200/tgtg/tgtg"
)

// Filter decides whether a listing is of interest
type Filter interface {
	// Evaluate checks if a listing matches the filter criteria
	Evaluate(item tgtg.PickupItem) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// Evaluator applies a filter to a list of listings
type Evaluator interface {
	Evaluate(ctx context.Context, filter CompiledFilter, items []tgtg.PickupItem) ([]tgtg.PickupItem, error)
}
