package expr

import "math"

// builtin implements one function call against already-evaluated
// argument values, returning the result or a *RuntimeError. Per spec.md
// §4.B null semantics, the aggregate functions (min, max, sum, mean) drop
// null arguments rather than propagating; count_available counts non-null
// arguments and never itself returns null.
type builtin func(args []Value) (Value, error)

var builtins = map[string]builtin{
	"abs":             biAbs,
	"sqrt":            biSqrt,
	"round":           biRound,
	"min":             biMin,
	"max":             biMax,
	"sum":             biSum,
	"mean":            biMean,
	"count_available": biCountAvailable,
}

// reservedWords may not be used as assignment names; they are either
// keywords or builtin function names.
var reservedWords = func() map[string]bool {
	r := map[string]bool{
		"and": true, "or": true, "xor": true,
		"if": true, "then": true, "elif": true, "else": true, "null": true,
	}
	for name := range builtins {
		r[name] = true
	}
	return r
}()

func requireArity(fn string, args []Value, n int) error {
	if len(args) != n {
		return &RuntimeError{Msg: fnArityMsg(fn, n, len(args))}
	}
	return nil
}

func fnArityMsg(fn string, want, got int) string {
	return fn + ": expected " + itoa(want) + " argument(s), got " + itoa(got)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func biAbs(args []Value) (Value, error) {
	if err := requireArity("abs", args, 1); err != nil {
		return Value{}, err
	}
	if args[0].IsNull {
		return NullValue(), nil
	}
	n, _ := args[0].asNumber()
	return NumberValue(math.Abs(n)), nil
}

func biSqrt(args []Value) (Value, error) {
	if err := requireArity("sqrt", args, 1); err != nil {
		return Value{}, err
	}
	if args[0].IsNull {
		return NullValue(), nil
	}
	n, _ := args[0].asNumber()
	if n < 0 {
		return Value{}, &RuntimeError{Msg: "sqrt: negative argument"}
	}
	return NumberValue(math.Sqrt(n)), nil
}

func biRound(args []Value) (Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return Value{}, &RuntimeError{Msg: "round: expected 1 or 2 arguments"}
	}
	if args[0].IsNull {
		return NullValue(), nil
	}
	n, _ := args[0].asNumber()
	digits := 0.0
	if len(args) == 2 {
		if args[1].IsNull {
			return NullValue(), nil
		}
		digits, _ = args[1].asNumber()
	}
	mult := math.Pow(10, digits)
	return NumberValue(math.RoundToEven(n*mult) / mult), nil
}

func nonNullNumbers(args []Value) []float64 {
	var out []float64
	for _, a := range args {
		if a.IsNull {
			continue
		}
		if n, ok := a.asNumber(); ok {
			out = append(out, n)
		}
	}
	return out
}

func biMin(args []Value) (Value, error) {
	nums := nonNullNumbers(args)
	if len(nums) == 0 {
		return NullValue(), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return NumberValue(m), nil
}

func biMax(args []Value) (Value, error) {
	nums := nonNullNumbers(args)
	if len(nums) == 0 {
		return NullValue(), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return NumberValue(m), nil
}

func biSum(args []Value) (Value, error) {
	nums := nonNullNumbers(args)
	if len(nums) == 0 {
		return NullValue(), nil
	}
	var s float64
	for _, n := range nums {
		s += n
	}
	return NumberValue(s), nil
}

func biMean(args []Value) (Value, error) {
	nums := nonNullNumbers(args)
	if len(nums) == 0 {
		return NullValue(), nil
	}
	var s float64
	for _, n := range nums {
		s += n
	}
	return NumberValue(s / float64(len(nums))), nil
}

func biCountAvailable(args []Value) (Value, error) {
	return NumberValue(float64(len(nonNullNumbers(args)))), nil
}
