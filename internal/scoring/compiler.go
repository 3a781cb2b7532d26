package scoring

import (
	"sync"

	"github.com/google/uuid"
	"github.com/proanalytics/core/internal/domain"
	"github.com/proanalytics/core/internal/expr"
)

// Compiler caches compiled Expression Engine programs per ConstructScale,
// so that registration-time compilation (spec.md §4.C: "an expression whose
// compilation fails is a definition-time error") happens at most once per
// distinct equation text rather than on every submission write.
type Compiler struct {
	mu    sync.RWMutex
	cache map[uuid.UUID]*compiledEntry
}

type compiledEntry struct {
	equation string
	expr     *expr.Expression
}

func NewCompiler() *Compiler {
	return &Compiler{cache: map[uuid.UUID]*compiledEntry{}}
}

// Compile returns the compiled expression for scale, reusing a cached
// program if scale.Equation hasn't changed since it was last compiled.
// A compile failure is a *domain.CoreError of kind InvalidExpression.
func (c *Compiler) Compile(scale domain.ConstructScale, itemCount int) (*expr.Expression, error) {
	c.mu.RLock()
	entry, ok := c.cache[scale.ID]
	c.mu.RUnlock()
	if ok && entry.equation == scale.Equation {
		return entry.expr, nil
	}

	compiled, err := expr.Compile(scale.Equation, itemCount)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[scale.ID] = &compiledEntry{equation: scale.Equation, expr: compiled}
	c.mu.Unlock()
	return compiled, nil
}

// Invalidate drops any cached program for scale, forcing recompilation on
// next use; callers invoke this when a ConstructScale definition changes.
func (c *Compiler) Invalidate(scaleID uuid.UUID) {
	c.mu.Lock()
	delete(c.cache, scaleID)
	c.mu.Unlock()
}
