// Package dsl 编译与执行数值表达式（函数查询），底层使用 CEL (Common Expression Language)。
//
// 表达式可访问的变量：
//   - doc：文档存储字段，例如 doc.popularity（数值统一为 double）
//   - params：请求级外部特征信息，例如 params.user_age
//   - score：文档的原生相关性分数
//   - id：文档 ID
//   - 其他未声明的标识符按文档字段解析，兼容 Solr 函数查询写法 pow(popularity,2)
//
// 除 CEL 标准运算外，注册了函数查询风格的辅助函数（参数可为任意数值类型）：
// pow, sub, add, mul, div, log, ln, exp, sqrt, abs, max, min, field。
//
// 示例：
//   - pow(doc.popularity, 2)
//   - sub(8, doc.popularity)
//   - sub(8, field(popularity))
//   - doc.price > 100.0 ? 1 : 0
package dsl

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/rushteam/ltr/pkg/conv"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	emptyVars = map[string]any{}
)

// reserved 是不能被当作文档字段的标识符：内置变量与 CEL 类型名。
var reserved = map[string]struct{}{
	"doc": {}, "params": {}, "score": {}, "id": {},
	"int": {}, "uint": {}, "double": {}, "bool": {}, "string": {}, "bytes": {},
	"list": {}, "map": {}, "type": {}, "null_type": {}, "dyn": {},
}

// funcPrefix 是函数查询的局部参数前缀，兼容 "{!func}pow(doc.popularity,2)" 写法。
const funcPrefix = "{!func}"

func initCELEnv() (*cel.Env, error) {
	opts := []cel.EnvOption{
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("params", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("score", cel.DoubleType),
		cel.Variable("id", cel.StringType),
	}
	opts = append(opts,
		binaryFunc("pow", math.Pow),
		binaryFunc("sub", func(a, b float64) float64 { return a - b }),
		binaryFunc("add", func(a, b float64) float64 { return a + b }),
		binaryFunc("mul", func(a, b float64) float64 { return a * b }),
		binaryFunc("div", func(a, b float64) float64 { return a / b }),
		binaryFunc("max", math.Max),
		binaryFunc("min", math.Min),
		unaryFunc("log", math.Log10),
		unaryFunc("ln", math.Log),
		unaryFunc("exp", math.Exp),
		unaryFunc("sqrt", math.Sqrt),
		unaryFunc("abs", math.Abs),
		unaryFunc("field", func(x float64) float64 { return x }),
	)
	return cel.NewEnv(opts...)
}

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

func unaryFunc(name string, fn func(float64) float64) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_dyn", []*cel.Type{cel.DynType}, cel.DoubleType,
			cel.UnaryBinding(func(arg ref.Val) ref.Val {
				x, err := toFloat(arg)
				if err != nil {
					return types.NewErr("%v", err)
				}
				return types.Double(fn(x))
			}),
		),
	)
}

func binaryFunc(name string, fn func(a, b float64) float64) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_dyn_dyn", []*cel.Type{cel.DynType, cel.DynType}, cel.DoubleType,
			cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
				a, err := toFloat(lhs)
				if err != nil {
					return types.NewErr("%v", err)
				}
				b, err := toFloat(rhs)
				if err != nil {
					return types.NewErr("%v", err)
				}
				return types.Double(fn(a, b))
			}),
		),
	)
}

func toFloat(v ref.Val) (float64, error) {
	switch val := v.(type) {
	case types.Double:
		return float64(val), nil
	case types.Int:
		return float64(val), nil
	case types.Uint:
		return float64(val), nil
	case types.Bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case *types.Err:
		return 0, val
	}
	return 0, fmt.Errorf("dsl: %v is not numeric", v.Type())
}

// Vars 是单次求值的输入。
type Vars struct {
	ID     string
	Doc    map[string]any
	Params map[string]any
	Score  float64
}

// Expression 是编译后的数值表达式，可被多个 goroutine 并发求值。
type Expression struct {
	src    string
	prg    cel.Program
	fields []string // 以裸标识符引用的文档字段
}

// Compile 编译表达式；语法错误、类型错误或结果类型不是数值时返回错误。
func Compile(expr string) (*Expression, error) {
	src := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(expr), funcPrefix))
	if src == "" {
		return nil, fmt.Errorf("dsl: empty expression")
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: cel env: %w", err)
	}

	parsed, issues := env.Parse(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl: compile %q: %w", src, issues.Err())
	}
	fields := freeIdents(parsed)
	if len(fields) > 0 {
		decls := make([]cel.EnvOption, len(fields))
		for i, f := range fields {
			decls[i] = cel.Variable(f, cel.DynType)
		}
		if env, err = env.Extend(decls...); err != nil {
			return nil, fmt.Errorf("dsl: declare fields of %q: %w", src, err)
		}
	}

	ast, issues := env.Check(parsed)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl: compile %q: %w", src, issues.Err())
	}
	switch ast.OutputType().Kind() {
	case types.DoubleKind, types.IntKind, types.UintKind, types.BoolKind, types.DynKind:
	default:
		return nil, fmt.Errorf("dsl: %q must return a number, got %s", src, ast.OutputType())
	}

	prg, err := env.Program(ast, cel.EvalOptions(cel.OptOptimize))
	if err != nil {
		return nil, fmt.Errorf("dsl: program %q: %w", src, err)
	}
	return &Expression{src: src, prg: prg, fields: fields}, nil
}

// freeIdents 收集表达式中未声明的标识符（宏展开产生的循环变量除外），按出现顺序去重。
func freeIdents(parsed *cel.Ast) []string {
	var (
		out   []string
		seen  = make(map[string]struct{})
		bound = make(map[string]struct{})
	)
	visitor := celast.NewExprVisitor(func(e celast.Expr) {
		switch e.Kind() {
		case celast.ComprehensionKind:
			c := e.AsComprehension()
			bound[c.IterVar()] = struct{}{}
			bound[c.AccuVar()] = struct{}{}
			if c.HasIterVar2() {
				bound[c.IterVar2()] = struct{}{}
			}
		case celast.IdentKind:
			name := e.AsIdent()
			if _, ok := reserved[name]; ok {
				return
			}
			if _, ok := seen[name]; ok {
				return
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	})
	celast.PreOrderVisit(parsed.NativeRep().Expr(), visitor)

	// 前序遍历时推导式节点先于其循环变量被访问
	kept := out[:0]
	for _, name := range out {
		if _, ok := bound[name]; !ok {
			kept = append(kept, name)
		}
	}
	return kept
}

// MustCompile 编译失败时 panic，仅用于测试与常量表达式。
func MustCompile(expr string) *Expression {
	e, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// String 返回表达式源码。
func (e *Expression) String() string { return e.src }

// EvalFloat 对一个文档求值。字段缺失、类型不符等运行期错误原样返回，由调用方决定降级策略。
func (e *Expression) EvalFloat(v Vars) (float64, error) {
	act := map[string]any{
		"id":     v.ID,
		"doc":    orEmpty(v.Doc),
		"params": orEmpty(v.Params),
		"score":  v.Score,
	}
	// 缺失的字段不绑定，求值时报 no such attribute，由调用方降级
	for _, f := range e.fields {
		if fv, ok := v.Doc[f]; ok {
			act[f] = fv
		}
	}
	out, _, err := e.prg.Eval(act)
	if err != nil {
		return 0, fmt.Errorf("dsl: eval %q: %w", e.src, err)
	}
	f, ok := conv.ToFloat64(out.Value())
	if !ok {
		return 0, fmt.Errorf("dsl: %q returned non-numeric %T", e.src, out.Value())
	}
	return f, nil
}

// NormalizeFields 把字段中的数值统一转换为 float64，避免 CEL 中 int/double 混合运算报错。
// 非数值字段原样保留。
func NormalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch v.(type) {
		case string, bool:
			out[k] = v
			continue
		}
		if f, ok := conv.ToFloat64(v); ok {
			out[k] = f
			continue
		}
		out[k] = v
	}
	return out
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return emptyVars
	}
	return m
}
