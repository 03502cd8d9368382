package compiler

import (
	"strconv"

	"github.com/sparkling-lang/sparkling/pkg/format"
)

// SemanticError is one compile-time failure: a redeclaration, an
// illegal break/continue, too many registers, a duplicate parameter,
// or an lvalue violation. Message is already formatted through the
// shared format engine, matching the teacher's one-routine-for-every-
// diagnostic pattern.
type SemanticError struct {
	Line    int
	Column  int
	Message string
}

func (e *SemanticError) Error() string {
	return e.Message
}

func newError(line, column int, format_ string, args ...interface{}) *SemanticError {
	msg, err := format.Sprintf(format_, format.GoArgs(args))
	if err != nil {
		msg = format_
	}
	return &SemanticError{
		Line:    line,
		Column:  column,
		Message: "semantic error near line " + strconv.Itoa(line) + ": " + msg,
	}
}
