package matcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// SegmentPlaceholder is replaced by the segment value in expression templates.
const SegmentPlaceholder = "{segment}"

// segmentVariable is the CEL variable bound to the segment value.
const segmentVariable = "segment"

// Expression templates with a native implementation.
const (
	ExprDigit         = "is_digit({segment})"
	ExprAlpha         = "is_alpha({segment})"
	ExprLower         = "is_lower({segment})"
	ExprUpper         = "is_upper({segment})"
	ExprAlnum         = "is_alnum({segment})"
	ExprAlnumWithDash = "is_alnum(strip_dashes({segment}))"
)

// ErrInvalidExpression is returned for expressions that do not compile to a
// boolean CEL program.
var ErrInvalidExpression = errors.New("invalid segment expression")

// nativeExpressions evaluate the optimizer templates without CEL. Every
// class is ASCII and requires a non-empty segment.
var nativeExpressions = map[string]func(string) bool{
	ExprDigit: isDigit,
	ExprAlpha: isAlpha,
	ExprLower: isLower,
	ExprUpper: isUpper,
	ExprAlnum: isAlnum,
	// Same acceptance set as [a-zA-Z0-9\-]+, a segment made of dashes only
	// included.
	ExprAlnumWithDash: isAlnumOrDash,
}

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error

	programCache   = make(map[string]cel.Program)
	programCacheMu sync.RWMutex
)

// compileExpression returns the evaluation function for a template.
func compileExpression(template string) (func(string) bool, error) {
	if fn, ok := nativeExpressions[template]; ok {
		return fn, nil
	}

	program, err := celProgram(template)
	if err != nil {
		return nil, err
	}

	return func(segment string) bool {
		out, _, err := program.Eval(map[string]interface{}{segmentVariable: segment})
		if err != nil {
			return false
		}
		matched, ok := out.Value().(bool)
		return ok && matched
	}, nil
}

// celProgram compiles the template to a CEL program, caching the result.
func celProgram(template string) (cel.Program, error) {
	metrics := getMatcherMetrics()

	programCacheMu.RLock()
	program, ok := programCache[template]
	programCacheMu.RUnlock()
	if ok {
		metrics.programCacheHits.Inc()
		return program, nil
	}
	metrics.programCacheMisses.Inc()

	env, err := environment()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	source := strings.ReplaceAll(template, SegmentPlaceholder, segmentVariable)
	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidExpression, template, issues.Err())
	}

	outputType := ast.OutputType()
	if !outputType.IsExactType(cel.BoolType) && !outputType.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w %q: must evaluate to bool, got %s",
			ErrInvalidExpression, template, outputType)
	}

	program, err = env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidExpression, template, err)
	}

	programCacheMu.Lock()
	programCache[template] = program
	programCacheMu.Unlock()

	return program, nil
}

// environment returns the shared CEL environment.
func environment() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable(segmentVariable, cel.StringType),

			cel.Function("is_digit",
				cel.Overload("is_digit_string",
					[]*cel.Type{cel.StringType}, cel.BoolType,
					cel.UnaryBinding(classBinding(isDigit)),
				),
			),
			cel.Function("is_alpha",
				cel.Overload("is_alpha_string",
					[]*cel.Type{cel.StringType}, cel.BoolType,
					cel.UnaryBinding(classBinding(isAlpha)),
				),
			),
			cel.Function("is_lower",
				cel.Overload("is_lower_string",
					[]*cel.Type{cel.StringType}, cel.BoolType,
					cel.UnaryBinding(classBinding(isLower)),
				),
			),
			cel.Function("is_upper",
				cel.Overload("is_upper_string",
					[]*cel.Type{cel.StringType}, cel.BoolType,
					cel.UnaryBinding(classBinding(isUpper)),
				),
			),
			cel.Function("is_alnum",
				cel.Overload("is_alnum_string",
					[]*cel.Type{cel.StringType}, cel.BoolType,
					cel.UnaryBinding(classBinding(isAlnum)),
				),
			),
			cel.Function("strip_dashes",
				cel.Overload("strip_dashes_string",
					[]*cel.Type{cel.StringType}, cel.StringType,
					cel.UnaryBinding(stripDashesBinding),
				),
			),
		)
	})
	return celEnv, celEnvErr
}

// classBinding adapts a character class test to a CEL unary function.
func classBinding(fn func(string) bool) func(ref.Val) ref.Val {
	return func(val ref.Val) ref.Val {
		s, ok := val.Value().(string)
		if !ok {
			return types.False
		}
		return types.Bool(fn(s))
	}
}

// stripDashesBinding removes every dash from a string (CEL binding).
func stripDashesBinding(val ref.Val) ref.Val {
	s, ok := val.Value().(string)
	if !ok {
		return types.String("")
	}
	return types.String(strings.ReplaceAll(s, "-", ""))
}

func isDigit(s string) bool {
	return allBytes(s, func(c byte) bool { return c >= '0' && c <= '9' })
}

func isLower(s string) bool {
	return allBytes(s, func(c byte) bool { return c >= 'a' && c <= 'z' })
}

func isUpper(s string) bool {
	return allBytes(s, func(c byte) bool { return c >= 'A' && c <= 'Z' })
}

func isAlpha(s string) bool {
	return allBytes(s, isAlphaByte)
}

func isAlnum(s string) bool {
	return allBytes(s, isAlnumByte)
}

func isAlnumOrDash(s string) bool {
	return allBytes(s, func(c byte) bool { return c == '-' || isAlnumByte(c) })
}

func isAlphaByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnumByte(c byte) bool {
	return isAlphaByte(c) || (c >= '0' && c <= '9')
}

// allBytes reports whether s is non-empty and every byte satisfies fn.
func allBytes(s string, fn func(byte) bool) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !fn(s[i]) {
			return false
		}
	}
	return true
}
