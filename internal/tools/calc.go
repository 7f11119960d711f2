package tools

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

var errSyntax = errors.New("syntax error")

// Expr is an evaluated arithmetic expression.
type Expr struct {
	src   string
	value float64
	// based is set when a hex, binary or octal literal appears.
	based bool
	// trivial is set when the input is a lone number or constant.
	trivial bool
}

// Value returns the result.
func (e *Expr) Value() float64 { return e.value }

var symbols = strings.NewReplacer("×", "*", "÷", "/", "−", "-", "π", "pi")

var basedLiteral = regexp.MustCompile(`(^|[^0-9a-z_.])0[xbo][0-9a-f_]+`)

var constants = map[string]any{
	"pi": math.Pi,
	"e":  math.E,
}

var functions = map[string]func(float64) float64{
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
	"ln":   math.Log,
	"log":  math.Log10,
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
}

var options = func() []expr.Option {
	opts := []expr.Option{expr.Env(constants), expr.DisableAllBuiltins()}
	for name, fn := range functions {
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("%s takes one argument", name)
			}
			x, ok := toFloat(params[0])
			if !ok {
				return nil, fmt.Errorf("%s: not a number", name)
			}
			return fn(x), nil
		}))
	}
	return opts
}()

// Eval evaluates s. It supports + - * / % ^ (or **), parentheses, unary
// signs, the constants pi and e, the functions sqrt, abs, ln, log, sin, cos
// and tan, and integer literals prefixed 0x, 0b or 0o.
func Eval(s string) (*Expr, error) {
	in := strings.ToLower(symbols.Replace(strings.TrimSpace(s)))
	if in == "" {
		return nil, fmt.Errorf("%w: empty expression", errSyntax)
	}
	tree, err := parser.Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSyntax, err)
	}
	program, err := expr.Compile(in, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSyntax, err)
	}
	out, err := expr.Run(program, constants)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	v, ok := toFloat(out)
	if !ok {
		return nil, fmt.Errorf("result %v is not a number", out)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("result is not a finite number")
	}
	return &Expr{
		src:     s,
		value:   v,
		based:   basedLiteral.MatchString(in),
		trivial: isLiteral(tree.Node),
	}, nil
}

// isLiteral reports whether n is a number or constant, optionally signed.
func isLiteral(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.IntegerNode, *ast.FloatNode, *ast.IdentifierNode:
		return true
	case *ast.UnaryNode:
		return isLiteral(n.Node)
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// FormatNumber renders v with at most 12 significant digits and without
// exponent notation for ordinary magnitudes.
func FormatNumber(v float64) string {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 12, 64), 64)
	if err != nil {
		r = v
	}
	if r == 0 {
		return "0"
	}
	if a := math.Abs(r); a >= 1e15 || a < 1e-6 {
		return strconv.FormatFloat(r, 'g', -1, 64)
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// alternates renders integral values in the other bases.
func alternates(v float64) []string {
	if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return nil
	}
	i := int64(v)
	sign := ""
	if i < 0 {
		sign = "-"
		i = -i
	}
	return []string{
		FormatNumber(v),
		sign + "0x" + strings.ToUpper(strconv.FormatInt(i, 16)),
		sign + "0b" + strconv.FormatInt(i, 2),
		sign + "0o" + strconv.FormatInt(i, 8),
	}
}
