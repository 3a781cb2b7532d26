package expr

import "fmt"

// SyntaxError is raised by the lexer or parser; it is wrapped into a
// domain.CoreError of kind INVALID_EXPRESSION at registration time.
type SyntaxError struct {
	Line, Col int
	Msg       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Col, e.Msg)
}

// RuntimeError is raised by the evaluator; it is wrapped into a
// domain.CoreError of kind EVALUATION_ERROR, degrading the affected score
// to null rather than aborting the submission write (spec.md §7).
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string { return e.Msg }
