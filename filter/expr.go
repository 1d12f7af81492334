package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/tgtg/tgtg"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
	now        func() time.Time
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// WithNow sets the clock used by time helpers such as now and pickupWithin
func WithNow(now func() time.Time) ExprCompilerOption {
	return func(c *exprCompiler) {
		c.now = now
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: make(map[string]any, 16),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	// custom functions win over the built-in helpers of the same name
	custom := c.helperFuncs
	c.helperFuncs = make(map[string]any, len(custom)+16)
	addHelperFunctions(c.helperFuncs, c.now)
	addListingHelperSignatures(c.helperFuncs)
	maps.Copy(c.helperFuncs, custom)

	return c
}

type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache
	now         func() time.Time
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(), // listing fields are bound per evaluation
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
		now:        c.now,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate evaluates the filter against a listing. Expressions that fail at
// runtime do not match.
func (f *exprFilter) Evaluate(item tgtg.PickupItem) bool {
	env := createRuntimeEnvironment(item, f.helpers, f.now())

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false
	}
	return result.(bool)
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// addHelperFunctions registers the helpers that do not depend on a listing
func addHelperFunctions(env map[string]any, now func() time.Time) {
	// Case-insensitive string helpers. contains, startsWith and endsWith are
	// built-in operators and cannot be redefined.
	env["containsFold"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["hasPrefixFold"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["hasSuffixFold"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper

	// Time helpers
	env["now"] = now
	env["minutesUntil"] = func(t time.Time) int {
		return int(t.Sub(now()).Minutes())
	}
	env["hourOf"] = func(t time.Time) int {
		return t.Local().Hour()
	}
	env["parseTime"] = func(s string) time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return t
	}
}

// addListingHelperSignatures declares the listing-aware helpers so calls to
// them are type checked at compile time. They are rebound per listing.
func addListingHelperSignatures(env map[string]any) {
	env["inCategory"] = func(string) bool { return false }
	env["hasDiet"] = func(string) bool { return false }
	env["pickupWithin"] = func(int) bool { return false }
	env["pickingUpNow"] = func() bool { return false }
}

// createRuntimeEnvironment binds a listing's fields and listing-aware helpers
func createRuntimeEnvironment(item tgtg.PickupItem, helpers map[string]any, now time.Time) map[string]any {
	env := make(map[string]any, len(helpers)+32)
	maps.Copy(env, helpers)

	var start, end time.Time
	if item.PickupInterval != nil {
		start, end = item.PickupInterval.Start, item.PickupInterval.End
	}

	price := item.Item.PriceIncludingTaxes.Decimal()
	value := item.Item.ValueIncludingTaxes.Decimal()
	discount := 0.0
	if value > 0 {
		discount = (1 - price/value) * 100
	}

	env["Item"] = item
	env["ItemID"] = item.Item.ItemID
	env["Name"] = item.Item.Name
	env["DisplayName"] = item.DisplayName
	env["Store"] = item.Store.StoreName
	env["Branch"] = item.Store.Branch
	env["City"] = item.Store.StoreLocation.Address.City
	env["Category"] = item.Item.ItemCategory
	env["Diets"] = item.Item.DietCategories
	env["Available"] = item.ItemsAvailable
	env["InSalesWindow"] = item.InSalesWindow
	env["IsAvailable"] = item.IsAvailable()
	env["Price"] = price
	env["Value"] = value
	env["Discount"] = discount
	env["Currency"] = item.Item.PriceIncludingTaxes.Code
	env["Distance"] = item.Distance
	env["Favorite"] = item.Favorite
	env["NewItem"] = item.NewItem
	env["Rating"] = item.Item.AverageOverallRating.AverageOverallRating
	env["RatingCount"] = item.Item.AverageOverallRating.RatingCount
	env["HasPickup"] = item.PickupInterval != nil
	env["PickupStart"] = start
	env["PickupEnd"] = end

	env["inCategory"] = func(category string) bool {
		return strings.EqualFold(item.Item.ItemCategory, category)
	}
	env["hasDiet"] = createHasDietFunc(item.Item.DietCategories)
	env["pickupWithin"] = func(minutes int) bool {
		if item.PickupInterval == nil {
			return false
		}
		limit := now.Add(time.Duration(minutes) * time.Minute)
		return !start.After(limit) && end.After(now)
	}
	env["pickingUpNow"] = func() bool {
		return item.PickupInterval != nil && item.PickupInterval.Contains(now)
	}

	return env
}

func createHasDietFunc(diets []string) func(string) bool {
	lower := make([]string, len(diets))
	for i, d := range diets {
		lower[i] = strings.ToLower(d)
	}
	return func(diet string) bool {
		return slices.Contains(lower, strings.ToLower(diet))
	}
}
