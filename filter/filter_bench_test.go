package filter

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkCompile(b *testing.B) {
	expressions := map[string]string{
		"simple":  `Available > 0`,
		"helpers": `inCategory("meal") and pickupWithin(120)`,
		"complex": `(containsFold(Store, "bakery") or hasDiet("vegan")) and Price < 5 and Distance < 2 and Rating > 4`,
	}

	for name, expression := range expressions {
		b.Run(name, func(b *testing.B) {
			compiler := NewExprCompiler()
			for b.Loop() {
				if _, err := compiler.Compile(expression); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEvaluate(b *testing.B) {
	filter, _ := NewExprCompiler().Compile(`Available > 0 and Distance < 3 and containsFold(Store, "bakery")`)

	for _, size := range []int{50, 500, 5000} {
		items := generateTestItems(size)

		b.Run(fmt.Sprintf("sequential/%d", size), func(b *testing.B) {
			for b.Loop() {
				evaluateSequential(filter, items)
			}
		})

		b.Run(fmt.Sprintf("concurrent/%d", size), func(b *testing.B) {
			evaluator := NewConcurrentEvaluator()
			ctx := context.Background()
			for b.Loop() {
				if _, err := evaluator.Evaluate(ctx, filter, items); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
