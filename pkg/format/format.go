// Package format implements the single printf-style formatting routine
// shared by the compiler's diagnostics and the standard library's
// printf/fmtstring/fprintf. Parameterizing over an ArgSource lets the
// same routine serve a Go-variadic call site (compiler errors) and a
// script []value.Value call site (the VM's native printf) without
// duplicating the directive parser.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the type of one formatting argument.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindUint
	KindFloat
	KindBool
	KindChar
)

// ArgSource abstracts over the argument list being formatted: Go's
// variadic []interface{} for diagnostics, or a script value array for
// the runtime library.
type ArgSource interface {
	Len() int
	Kind(i int) Kind
	String(i int) string
	Int(i int) int64
	Uint(i int) uint64
	Float(i int) float64
	Bool(i int) bool
}

// GoArgs adapts a Go variadic argument list to ArgSource, for compiler
// diagnostics.
type GoArgs []interface{}

func (a GoArgs) Len() int { return len(a) }

func (a GoArgs) Kind(i int) Kind {
	switch a[i].(type) {
	case string:
		return KindString
	case bool:
		return KindBool
	case float32, float64:
		return KindFloat
	case uint, uint8, uint16, uint32, uint64:
		return KindUint
	default:
		return KindInt
	}
}

func (a GoArgs) String(i int) string { return fmt.Sprint(a[i]) }

func (a GoArgs) Int(i int) int64 {
	switch v := a[i].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	default:
		return 0
	}
}

func (a GoArgs) Uint(i int) uint64 {
	switch v := a[i].(type) {
	case uint:
		return uint64(v)
	case uint64:
		return v
	case uint32:
		return uint64(v)
	default:
		return 0
	}
}

func (a GoArgs) Float(i int) float64 {
	switch v := a[i].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	default:
		return 0
	}
}

func (a GoArgs) Bool(i int) bool {
	b, _ := a[i].(bool)
	return b
}

// Error reports a formatting failure naming the offending argument
// index, per spec.md §4.5's contract.
type Error struct {
	ArgIndex int
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("format error at argument %d: %s", e.ArgIndex, e.Message)
}

// Sprintf expands format against args, implementing the directive set
// spec.md §4.5 names: flags (# 0 + space), width/precision (each
// optionally '*'-parameterized), and specifiers
// s/i/d/u/o/x/X/b/c/f/F/B/%.
func Sprintf(format string, args ArgSource) (string, error) {
	var out strings.Builder
	argi := 0
	nextArg := func() (int, error) {
		if argi >= args.Len() {
			return 0, &Error{ArgIndex: argi, Message: "not enough arguments"}
		}
		i := argi
		argi++
		return i, nil
	}

	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch != '%' {
			out.WriteRune(ch)
			continue
		}
		i++
		if i >= len(runes) {
			return "", &Error{ArgIndex: argi, Message: "dangling %% at end of format string"}
		}

		spec, flags := parseFlags(runes, &i)
		width, hasWidth, err := parseNumberOrStar(runes, &i, args, &argi)
		if err != nil {
			return "", err
		}
		var prec int
		hasPrec := false
		if i < len(runes) && runes[i] == '.' {
			i++
			prec, _, err = parseNumberOrStar(runes, &i, args, &argi)
			if err != nil {
				return "", err
			}
			hasPrec = true
		}
		_ = spec
		if i >= len(runes) {
			return "", &Error{ArgIndex: argi, Message: "truncated format directive"}
		}
		verb := runes[i]
		if verb == '%' {
			out.WriteByte('%')
			continue
		}

		idx, err := nextArg()
		if err != nil {
			return "", err
		}
		s, err := formatOne(verb, flags, width, hasWidth, prec, hasPrec, args, idx)
		if err != nil {
			return "", err
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

type flagSet struct {
	alt, zero, plus, space, minus bool
}

func parseFlags(runes []rune, i *int) (string, flagSet) {
	var fs flagSet
	var sb strings.Builder
	for *i < len(runes) {
		switch runes[*i] {
		case '#':
			fs.alt = true
		case '0':
			fs.zero = true
		case '+':
			fs.plus = true
		case ' ':
			fs.space = true
		case '-':
			fs.minus = true
		default:
			return sb.String(), fs
		}
		sb.WriteRune(runes[*i])
		*i++
	}
	return sb.String(), fs
}

func parseNumberOrStar(runes []rune, i *int, args ArgSource, argi *int) (int, bool, error) {
	if *i < len(runes) && runes[*i] == '*' {
		*i++
		if *argi >= args.Len() {
			return 0, true, &Error{ArgIndex: *argi, Message: "missing '*' width/precision argument"}
		}
		v := int(args.Int(*argi))
		*argi++
		return v, true, nil
	}
	start := *i
	for *i < len(runes) && runes[*i] >= '0' && runes[*i] <= '9' {
		*i++
	}
	if *i == start {
		return 0, false, nil
	}
	n, _ := strconv.Atoi(string(runes[start:*i]))
	return n, true, nil
}

func formatOne(verb rune, flags flagSet, width int, hasWidth bool, prec int, hasPrec bool, args ArgSource, idx int) (string, error) {
	var s string
	switch verb {
	case 's':
		s = stringOf(args, idx)
		if hasPrec && prec < len(s) {
			s = s[:prec]
		}
	case 'i', 'd':
		n := args.Int(idx)
		s = strconv.FormatInt(n, 10)
		if flags.plus && n >= 0 {
			s = "+" + s
		} else if flags.space && n >= 0 {
			s = " " + s
		}
	case 'u':
		s = strconv.FormatUint(uintOf(args, idx), 10)
	case 'o':
		s = strconv.FormatUint(uintOf(args, idx), 8)
		if flags.alt {
			s = "0" + s
		}
	case 'x':
		s = strconv.FormatUint(uintOf(args, idx), 16)
		if flags.alt {
			s = "0x" + s
		}
	case 'X':
		s = strings.ToUpper(strconv.FormatUint(uintOf(args, idx), 16))
		if flags.alt {
			s = "0X" + s
		}
	case 'b':
		s = strconv.FormatUint(uintOf(args, idx), 2)
	case 'c':
		s = string(rune(args.Int(idx)))
	case 'f', 'F':
		p := 6
		if hasPrec {
			p = prec
		}
		s = formatFloat(args.Float(idx), p, flags)
	case 'B':
		if args.Bool(idx) {
			s = "true"
		} else {
			s = "false"
		}
	default:
		return "", &Error{ArgIndex: idx, Message: fmt.Sprintf("unknown format specifier %%%c", verb)}
	}
	return pad(s, width, hasWidth, flags), nil
}

func stringOf(args ArgSource, idx int) string {
	if args.Kind(idx) == KindString {
		return args.String(idx)
	}
	return args.String(idx)
}

func uintOf(args ArgSource, idx int) uint64 {
	if args.Kind(idx) == KindUint {
		return args.Uint(idx)
	}
	return uint64(args.Int(idx))
}

// formatFloat handles NaN, +/-Inf, and signed zero explicitly, per
// spec.md §4.5.
func formatFloat(f float64, prec int, flags flagSet) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if f == 0 && math.Signbit(f) {
		s = "-" + strings.TrimPrefix(s, "-")
	}
	if flags.plus && f >= 0 && !math.Signbit(f) {
		s = "+" + s
	} else if flags.space && f >= 0 && !math.Signbit(f) {
		s = " " + s
	}
	return s
}

func pad(s string, width int, hasWidth bool, flags flagSet) string {
	if !hasWidth || len(s) >= width {
		return s
	}
	padLen := width - len(s)
	padChar := byte(' ')
	if flags.zero && !flags.minus {
		padChar = '0'
	}
	padding := strings.Repeat(string(padChar), padLen)
	if flags.minus {
		return s + strings.Repeat(" ", padLen)
	}
	if padChar == '0' && len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		return s[:1] + padding + s[1:]
	}
	return padding + s
}
