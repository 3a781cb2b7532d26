package expr

import "fmt"

// Validate performs the compile-time checks spec.md §4.B and §7 require at
// registration (before any submission is ever scored against the
// expression): unknown function calls, item references beyond the
// construct's declared item count, assignment names that shadow reserved
// words, and references to names before they are assigned earlier in the
// same Program. A failure here is reported as domain.KindInvalidExpression,
// never as a per-submission evaluation error.
func Validate(prog *Program, itemCount int) error {
	assigned := map[string]bool{}
	for _, stmt := range prog.Stmts {
		if a, ok := stmt.(Assign); ok {
			if reservedWords[a.Name] {
				return fmt.Errorf("cannot assign to reserved word %q", a.Name)
			}
			if err := validateNode(a.Expr, itemCount, assigned); err != nil {
				return err
			}
			assigned[a.Name] = true
			continue
		}
		if err := validateNode(stmt, itemCount, assigned); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n Node, itemCount int, assigned map[string]bool) error {
	switch t := n.(type) {
	case NumberLit, NullLit:
		return nil
	case ItemRef:
		if t.N < 1 || t.N > itemCount {
			return fmt.Errorf("item reference {q%d} has no corresponding item (construct declares %d)", t.N, itemCount)
		}
		return nil
	case NameRef:
		if !assigned[t.Name] {
			return fmt.Errorf("reference to name %q before it is assigned", t.Name)
		}
		return nil
	case Unary:
		return validateNode(t.Expr, itemCount, assigned)
	case Binary:
		if err := validateNode(t.Left, itemCount, assigned); err != nil {
			return err
		}
		return validateNode(t.Right, itemCount, assigned)
	case Call:
		if _, ok := builtins[t.Func]; !ok {
			return fmt.Errorf("call to unknown function %q", t.Func)
		}
		for _, a := range t.Args {
			if err := validateNode(a, itemCount, assigned); err != nil {
				return err
			}
		}
		return nil
	case Cond:
		for _, arm := range t.Arms {
			if arm.Cond != nil {
				if err := validateNode(arm.Cond, itemCount, assigned); err != nil {
					return err
				}
			}
			if err := validateNode(arm.Body, itemCount, assigned); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported expression node in validation")
	}
}
