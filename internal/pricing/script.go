package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/spf13/afero"
)

// Script variables. A pricing script reads price, stock and qty and must
// assign new_price, e.g.
//
//	math := import("math")
//	new_price := price * (1 + math.pow(float(qty) / stock, 0.8))
const (
	varPrice    = "price"
	varStock    = "stock"
	varQty      = "qty"
	varNewPrice = "new_price"
)

// Limits applied to every script evaluation.
const (
	defaultMaxAllocs     = 10_000
	defaultMaxRunTime    = 50 * time.Millisecond
	allowedStdlibModules = "math"
)

// ScriptRule evaluates a Tengo pricing script. Results that are not finite
// or do not raise the price are rejected and Fallback is used instead.
type ScriptRule struct {
	Path     string
	compiled *tengo.Compiled
	timeout  time.Duration
	Fallback Rule
}

// CompileScript prepares a pricing script from source. The script is compiled
// once; every evaluation runs on a clone so ScriptRule is safe for
// concurrent use.
func CompileScript(path string, src []byte) (*ScriptRule, error) {
	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap(allowedStdlibModules))
	script.SetMaxAllocs(defaultMaxAllocs)

	// Declare inputs so the compiler can resolve them.
	for name, zero := range map[string]interface{}{varPrice: 0.0, varStock: 0, varQty: 0} {
		if err := script.Add(name, zero); err != nil {
			return nil, fmt.Errorf("failed to declare %s: %w", name, err)
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile pricing script %s: %w", path, err)
	}
	rule := &ScriptRule{
		Path:     path,
		compiled: compiled,
		timeout:  defaultMaxRunTime,
		Fallback: DemandRule{},
	}
	if err := rule.trialRun(); err != nil {
		return nil, err
	}
	return rule, nil
}

// trialRun executes the script once on sample inputs. Globals only hold
// values after a run, so this is where a missing new_price shows up.
func (r *ScriptRule) trialRun() error {
	c := r.compiled.Clone()
	for name, v := range map[string]interface{}{varPrice: 100.0, varStock: 10, varQty: 1} {
		if err := c.Set(name, v); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := c.RunContext(ctx); err != nil {
		return fmt.Errorf("pricing script %s failed on sample inputs: %w", r.Path, err)
	}
	if !c.IsDefined(varNewPrice) {
		return fmt.Errorf("pricing script %s does not assign %s", r.Path, varNewPrice)
	}
	return nil
}

// LoadScript reads and compiles a pricing script from the filesystem.
func LoadScript(fs afero.Fs, path string) (*ScriptRule, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing script: %w", err)
	}
	return CompileScript(path, src)
}

// Eval runs the script and returns its raw result without any fallback.
func (r *ScriptRule) Eval(ctx context.Context, current float64, stockBefore, qty int) (float64, error) {
	c := r.compiled.Clone()
	if err := c.Set(varPrice, current); err != nil {
		return 0, err
	}
	if err := c.Set(varStock, stockBefore); err != nil {
		return 0, err
	}
	if err := c.Set(varQty, qty); err != nil {
		return 0, err
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := c.RunContext(runCtx); err != nil {
		return 0, fmt.Errorf("pricing script execution failed: %w", err)
	}

	v := c.Get(varNewPrice)
	switch v.ValueType() {
	case "float", "int":
		return v.Float(), nil
	default:
		return 0, fmt.Errorf("pricing script set %s to %s, want a number", varNewPrice, v.ValueType())
	}
}

// Next implements Rule.
func (r *ScriptRule) Next(ctx context.Context, current float64, stockBefore, qty int) (float64, error) {
	if stockBefore <= 0 {
		return current, nil
	}

	next, err := r.Eval(ctx, current, stockBefore, qty)
	if err == nil {
		err = checkIncrease(current, next, stockBefore, qty)
	}
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		slog.WarnContext(ctx, "Pricing script rejected, using fallback rule",
			"event", "pricing_script_fallback",
			"script", r.Path,
			"price", current,
			"stock", stockBefore,
			"error", err,
		)
		return r.fallback().Next(ctx, current, stockBefore, qty)
	}
	return next, nil
}

func (r *ScriptRule) fallback() Rule {
	if r.Fallback == nil {
		return DemandRule{}
	}
	return r.Fallback
}
