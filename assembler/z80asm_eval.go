// z80asm_eval.go - Expression evaluation against an evaluation context

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package assembler

import (
	"math"
	"math/rand/v2"
	"strings"
)

// EvaluationContext supplies the environment an expression is evaluated in.
// The live assembler and recorded fixups both implement it.
type EvaluationContext interface {
	CurrentAddress() uint16
	SymbolValue(name string, startFromGlobal bool) (Value, bool)
	LoopCounterValue() Value
	ReportEvaluationError(code ErrorCode, args ...interface{})
}

// randomSource is implemented by contexts that own a seeded generator.
type randomSource interface {
	Random() *rand.Rand
}

// readyToEvaluate reports whether every symbol the expression references is
// already known in ctx.
func readyToEvaluate(ctx EvaluationContext, e *Expr) bool {
	switch e.kind {
	case exprSymbol:
		_, ok := ctx.SymbolValue(e.name, e.global)
		return ok
	case exprBinary:
		if e.name == "??" {
			return readyToEvaluate(ctx, e.args[1])
		}
	}
	for _, arg := range e.args {
		if !readyToEvaluate(ctx, arg) {
			return false
		}
	}
	return true
}

// Evaluate computes the value of e. Problems are reported to ctx and yield
// ErrorValue; a symbol that cannot be found is reported as unresolved.
func Evaluate(ctx EvaluationContext, e *Expr) Value {
	switch e.kind {
	case exprLiteral:
		return e.value

	case exprSymbol:
		v, ok := ctx.SymbolValue(e.name, e.global)
		if !ok {
			ctx.ReportEvaluationError(ErrUnresolvedSymbol, e.name)
			return ErrorValue
		}
		return v

	case exprCurrentAddress:
		return IntValue(int64(ctx.CurrentAddress()))

	case exprLoopCounter:
		return ctx.LoopCounterValue()

	case exprMacroParam:
		ctx.ReportEvaluationError(ErrMacroParamOut)
		return ErrorValue

	case exprUnary:
		return evalUnary(ctx, e)

	case exprBinary:
		if e.name == "??" {
			if readyToEvaluate(ctx, e.args[0]) {
				if left := Evaluate(ctx, e.args[0]); left.IsValid() {
					return left
				}
			}
			return Evaluate(ctx, e.args[1])
		}
		left := Evaluate(ctx, e.args[0])
		if !left.IsValid() {
			return left
		}
		right := Evaluate(ctx, e.args[1])
		if !right.IsValid() {
			return right
		}
		return evalBinary(ctx, e.name, left, right)

	case exprConditional:
		cond := Evaluate(ctx, e.args[0])
		if !cond.IsValid() {
			return cond
		}
		if cond.Type() == ValueString {
			ctx.ReportEvaluationError(ErrStringNotAllowed)
			return ErrorValue
		}
		if cond.AsBool() {
			return Evaluate(ctx, e.args[1])
		}
		return Evaluate(ctx, e.args[2])

	case exprFunction:
		return evalFunction(ctx, e)
	}
	return ErrorValue
}

func evalUnary(ctx EvaluationContext, e *Expr) Value {
	v := Evaluate(ctx, e.args[0])
	if !v.IsValid() {
		return v
	}
	if v.Type() == ValueString {
		ctx.ReportEvaluationError(ErrEvaluation, "unary '"+e.name+"' cannot be applied to a string")
		return ErrorValue
	}
	switch e.name {
	case "+":
		return v
	case "-":
		if v.isIntegral() {
			return IntValue(-v.AsLong())
		}
		return RealValue(-v.AsReal())
	case "~":
		if !v.isIntegral() {
			ctx.ReportEvaluationError(ErrEvaluation, "unary '~' requires an integral operand")
			return ErrorValue
		}
		return IntValue(^v.AsLong())
	case "!":
		return BoolValue(!v.AsBool())
	}
	return ErrorValue
}

func evalBinary(ctx EvaluationContext, op string, left, right Value) Value {
	lstr := left.Type() == ValueString
	rstr := right.Type() == ValueString
	integral := left.isIntegral() && right.isIntegral()

	fail := func(msg string) Value {
		ctx.ReportEvaluationError(ErrEvaluation, msg)
		return ErrorValue
	}

	switch op {
	case "+":
		if lstr && rstr {
			return StringValue(left.AsString() + right.AsString())
		}
		if lstr || rstr {
			return fail("'+' cannot mix a string with a number")
		}
		if integral {
			return IntValue(left.AsLong() + right.AsLong())
		}
		return RealValue(left.AsReal() + right.AsReal())

	case "-", "*", "/", "<?", ">?", "**":
		if lstr || rstr {
			return fail("'" + op + "' cannot be applied to a string")
		}
		switch op {
		case "-":
			if integral {
				return IntValue(left.AsLong() - right.AsLong())
			}
			return RealValue(left.AsReal() - right.AsReal())
		case "*":
			if integral {
				return IntValue(left.AsLong() * right.AsLong())
			}
			return RealValue(left.AsReal() * right.AsReal())
		case "/":
			if right.AsReal() == 0 {
				return fail("divide by zero")
			}
			if integral {
				return IntValue(left.AsLong() / right.AsLong())
			}
			return RealValue(left.AsReal() / right.AsReal())
		case "<?":
			if integral {
				return IntValue(min(left.AsLong(), right.AsLong()))
			}
			return RealValue(math.Min(left.AsReal(), right.AsReal()))
		case ">?":
			if integral {
				return IntValue(max(left.AsLong(), right.AsLong()))
			}
			return RealValue(math.Max(left.AsReal(), right.AsReal()))
		default:
			return numberValue(math.Pow(left.AsReal(), right.AsReal()), integral && right.AsLong() >= 0)
		}

	case "%", "<<", ">>", "&", "|", "^":
		if !integral {
			return fail("'" + op + "' requires integral operands")
		}
		l, r := left.AsLong(), right.AsLong()
		switch op {
		case "%":
			if r == 0 {
				return fail("divide by zero")
			}
			return IntValue(l % r)
		case "<<":
			if r < 0 || r > 63 {
				return IntValue(0)
			}
			return IntValue(l << uint(r))
		case ">>":
			if r < 0 || r > 63 {
				return IntValue(0)
			}
			return IntValue(l >> uint(r))
		case "&":
			return IntValue(l & r)
		case "|":
			return IntValue(l | r)
		default:
			return IntValue(l ^ r)
		}

	case "&&":
		return BoolValue(left.AsBool() && right.AsBool())
	case "||":
		return BoolValue(left.AsBool() || right.AsBool())

	case "==", "!=", "===", "!==", "<", "<=", ">", ">=":
		var cmp int
		switch {
		case lstr && rstr:
			l, r := left.AsString(), right.AsString()
			if op == "===" || op == "!==" {
				l, r = strings.ToLower(l), strings.ToLower(r)
			}
			cmp = strings.Compare(l, r)
		case lstr || rstr:
			return fail("'" + op + "' cannot compare a string with a number")
		case integral:
			cmp = compareInts(left.AsLong(), right.AsLong())
		default:
			cmp = compareFloats(left.AsReal(), right.AsReal())
		}
		switch op {
		case "==", "===":
			return BoolValue(cmp == 0)
		case "!=", "!==":
			return BoolValue(cmp != 0)
		case "<":
			return BoolValue(cmp < 0)
		case "<=":
			return BoolValue(cmp <= 0)
		case ">":
			return BoolValue(cmp > 0)
		default:
			return BoolValue(cmp >= 0)
		}
	}
	return fail("unknown operator '" + op + "'")
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Built-in functions
// ---------------------------------------------------------------------------

// argKind is the loosest value type an overload accepts for an argument.
type argKind int

const (
	argInt    argKind = iota // bool or integer
	argReal                  // bool, integer or real
	argString                // string only
	argBool                  // bool only
)

type funcOverload struct {
	args []argKind
	fn   func(ctx EvaluationContext, a []Value) (Value, string)
}

func (o funcOverload) accepts(values []Value) bool {
	if len(o.args) != len(values) {
		return false
	}
	for i, kind := range o.args {
		t := values[i].Type()
		switch kind {
		case argInt:
			if t != ValueBool && t != ValueInteger {
				return false
			}
		case argReal:
			if t != ValueBool && t != ValueInteger && t != ValueReal {
				return false
			}
		case argString:
			if t != ValueString {
				return false
			}
		case argBool:
			if t != ValueBool {
				return false
			}
		}
	}
	return true
}

func real1(f func(float64) float64) []funcOverload {
	return []funcOverload{{
		args: []argKind{argReal},
		fn: func(_ EvaluationContext, a []Value) (Value, string) {
			return RealValue(f(a[0].AsReal())), ""
		},
	}}
}

func int1(f func(int64) int64) funcOverload {
	return funcOverload{
		args: []argKind{argInt},
		fn: func(_ EvaluationContext, a []Value) (Value, string) {
			return IntValue(f(a[0].AsLong())), ""
		},
	}
}

func str1(f func(string) string) []funcOverload {
	return []funcOverload{{
		args: []argKind{argString},
		fn: func(_ EvaluationContext, a []Value) (Value, string) {
			return StringValue(f(a[0].AsString())), ""
		},
	}}
}

func randomInt(ctx EvaluationContext, from, to int64) int64 {
	if to <= from {
		return from
	}
	if src, ok := ctx.(randomSource); ok && src.Random() != nil {
		return from + src.Random().Int64N(to-from)
	}
	return from + rand.Int64N(to-from)
}

func checkScreenPos(a []Value) (int64, int64, string) {
	line, col := a[0].AsLong(), a[1].AsLong()
	if line < 0 || line > 191 {
		return 0, 0, "the 'line' argument must be between 0 and 191"
	}
	if col < 0 || col > 255 {
		return 0, 0, "the 'col' argument must be between 0 and 255"
	}
	return line, col, ""
}

var functions map[string][]funcOverload

func init() {
	lengthFn := []funcOverload{{
		args: []argKind{argString},
		fn: func(_ EvaluationContext, a []Value) (Value, string) {
			return IntValue(int64(len(a[0].AsString()))), ""
		},
	}}
	lowerFn := str1(strings.ToLower)
	upperFn := str1(strings.ToUpper)

	functions = map[string][]funcOverload{
		"abs": {
			int1(func(v int64) int64 {
				if v < 0 {
					return -v
				}
				return v
			}),
			{args: []argKind{argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
				return RealValue(math.Abs(a[0].AsReal())), ""
			}},
		},
		"acos":     real1(math.Acos),
		"asin":     real1(math.Asin),
		"atan":     real1(math.Atan),
		"ceiling":  real1(math.Ceil),
		"cos":      real1(math.Cos),
		"cosh":     real1(math.Cosh),
		"exp":      real1(math.Exp),
		"floor":    real1(math.Floor),
		"log10":    real1(math.Log10),
		"round":    real1(math.Round),
		"sin":      real1(math.Sin),
		"sinh":     real1(math.Sinh),
		"sqrt":     real1(math.Sqrt),
		"tan":      real1(math.Tan),
		"tanh":     real1(math.Tanh),
		"truncate": real1(math.Trunc),
		"atan2": {{args: []argKind{argReal, argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			return RealValue(math.Atan2(a[0].AsReal(), a[1].AsReal())), ""
		}}},
		"log": {
			{args: []argKind{argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
				return RealValue(math.Log(a[0].AsReal())), ""
			}},
			{args: []argKind{argReal, argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
				base := a[1].AsReal()
				if base == 0 {
					return RealValue(math.Log(a[0].AsReal())), ""
				}
				return RealValue(math.Log(a[0].AsReal()) / math.Log(base)), ""
			}},
		},
		"max": {
			{args: []argKind{argInt, argInt}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
				return IntValue(max(a[0].AsLong(), a[1].AsLong())), ""
			}},
			{args: []argKind{argReal, argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
				return RealValue(math.Max(a[0].AsReal(), a[1].AsReal())), ""
			}},
		},
		"min": {
			{args: []argKind{argInt, argInt}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
				return IntValue(min(a[0].AsLong(), a[1].AsLong())), ""
			}},
			{args: []argKind{argReal, argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
				return RealValue(math.Min(a[0].AsReal(), a[1].AsReal())), ""
			}},
		},
		"pow": {{args: []argKind{argReal, argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			return RealValue(math.Pow(a[0].AsReal(), a[1].AsReal())), ""
		}}},
		"sign": {
			int1(func(v int64) int64 { return int64(compareInts(v, 0)) }),
			{args: []argKind{argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
				return RealValue(float64(compareFloats(a[0].AsReal(), 0))), ""
			}},
		},
		"pi": {{fn: func(EvaluationContext, []Value) (Value, string) { return RealValue(math.Pi), "" }}},
		"nat": {{fn: func(EvaluationContext, []Value) (Value, string) { return RealValue(math.E), "" }}},
		"low":  {int1(func(v int64) int64 { return v & 0xff })},
		"high": {int1(func(v int64) int64 { return (v >> 8) & 0xff })},
		"word": {int1(func(v int64) int64 { return v & 0xffff })},
		"int": {{args: []argKind{argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			return IntValue(a[0].AsLong()), ""
		}}},
		"frac": {{args: []argKind{argReal}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			return RealValue(a[0].AsReal() - float64(a[0].AsLong())), ""
		}}},
		"rnd": {
			{fn: func(ctx EvaluationContext, _ []Value) (Value, string) {
				return IntValue(randomInt(ctx, 0, 0x10000)), ""
			}},
			{args: []argKind{argInt, argInt}, fn: func(ctx EvaluationContext, a []Value) (Value, string) {
				return IntValue(randomInt(ctx, a[0].AsLong(), a[1].AsLong())), ""
			}},
		},
		"length":    lengthFn,
		"len":       lengthFn,
		"lowercase": lowerFn,
		"lcase":     lowerFn,
		"uppercase": upperFn,
		"ucase":     upperFn,
		"left": {{args: []argKind{argString, argInt}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			s := a[0].AsString()
			n := clampLen(a[1].AsLong(), len(s))
			return StringValue(s[:n]), ""
		}}},
		"right": {{args: []argKind{argString, argInt}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			s := a[0].AsString()
			n := clampLen(a[1].AsLong(), len(s))
			return StringValue(s[len(s)-n:]), ""
		}}},
		"substr": {{args: []argKind{argString, argInt, argInt}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			s := a[0].AsString()
			start := clampLen(a[1].AsLong(), len(s))
			n := clampLen(a[2].AsLong(), len(s)-start)
			return StringValue(s[start : start+n]), ""
		}}},
		"fill": {{args: []argKind{argString, argInt}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			s := a[0].AsString()
			count := a[1].AsLong()
			if count < 0 {
				count = 0
			}
			if len(s) > 0 && count > 0x4000/int64(len(s)) {
				return ErrorValue, "the result of fill() would be longer than 0x4000 bytes"
			}
			return StringValue(strings.Repeat(s, int(count))), ""
		}}},
		"str": {
			{args: []argKind{argBool}, fn: strOf},
			{args: []argKind{argInt}, fn: strOf},
			{args: []argKind{argReal}, fn: strOf},
			{args: []argKind{argString}, fn: strOf},
		},
		"scraddr": {{args: []argKind{argInt, argInt}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			line, col, msg := checkScreenPos(a)
			if msg != "" {
				return ErrorValue, msg
			}
			da := 0x4000 | (col >> 3) | (line << 5)
			return IntValue(((da & 0xf81f) | ((da & 0x0700) >> 3) | ((da & 0x00e0) << 3)) & 0xffff), ""
		}}},
		"attraddr": {{args: []argKind{argInt, argInt}, fn: func(_ EvaluationContext, a []Value) (Value, string) {
			line, col, msg := checkScreenPos(a)
			if msg != "" {
				return ErrorValue, msg
			}
			return IntValue(0x5800 + (line>>3)*32 + (col >> 3)), ""
		}}},
		"ink":    {int1(func(v int64) int64 { return v & 0x07 })},
		"paper":  {int1(func(v int64) int64 { return (v & 0x07) << 3 })},
		"bright": {int1(func(v int64) int64 { return flagBits(v, 0x40) })},
		"flash":  {int1(func(v int64) int64 { return flagBits(v, 0x80) })},
		"attr": {
			{args: []argKind{argInt, argInt, argInt, argInt}, fn: attrOf},
			{args: []argKind{argInt, argInt, argInt}, fn: attrOf},
			{args: []argKind{argInt, argInt}, fn: attrOf},
		},
	}
}

func strOf(_ EvaluationContext, a []Value) (Value, string) {
	return StringValue(a[0].AsString()), ""
}

func attrOf(_ EvaluationContext, a []Value) (Value, string) {
	v := (a[0].AsLong() & 0x07) | (a[1].AsLong()&0x07)<<3
	if len(a) > 2 {
		v |= flagBits(a[2].AsLong(), 0x40)
	}
	if len(a) > 3 {
		v |= flagBits(a[3].AsLong(), 0x80)
	}
	return IntValue(v & 0xff), ""
}

func flagBits(v, bit int64) int64 {
	if v == 0 {
		return 0
	}
	return bit
}

func clampLen(n int64, limit int) int {
	if n < 0 {
		return 0
	}
	if n > int64(limit) {
		return limit
	}
	return int(n)
}

func evalFunction(ctx EvaluationContext, e *Expr) Value {
	args := make([]Value, 0, len(e.args))
	failed := false
	for _, arg := range e.args {
		v := Evaluate(ctx, arg)
		if !v.IsValid() {
			failed = true
			continue
		}
		args = append(args, v)
	}
	if failed {
		return ErrorValue
	}

	overloads, ok := functions[e.name]
	if !ok {
		ctx.ReportEvaluationError(ErrEvaluation, "unknown function '"+e.name+"'")
		return ErrorValue
	}
	for _, o := range overloads {
		if !o.accepts(args) {
			continue
		}
		v, msg := o.fn(ctx, args)
		if msg != "" {
			ctx.ReportEvaluationError(ErrEvaluation, e.name+"(): "+msg)
			return ErrorValue
		}
		return v
	}
	ctx.ReportEvaluationError(ErrEvaluation, "the arguments of '"+e.name+"' do not match any signature")
	return ErrorValue
}
