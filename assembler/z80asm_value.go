// z80asm_value.go - Typed expression values

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
	"strconv"
	"strings"
)

// ValueType tags the content of a Value.
type ValueType int

const (
	ValueNonEvaluated ValueType = iota // depends on a symbol not known yet
	ValueError                         // evaluation failed, already reported
	ValueBool
	ValueInteger
	ValueReal
	ValueString
)

func (t ValueType) String() string {
	switch t {
	case ValueNonEvaluated:
		return "non-evaluated"
	case ValueError:
		return "error"
	case ValueBool:
		return "bool"
	case ValueInteger:
		return "integer"
	case ValueReal:
		return "real"
	case ValueString:
		return "string"
	}
	return "unknown"
}

// Value is the immutable result of evaluating an expression.
type Value struct {
	typ ValueType
	i   int64
	r   float64
	s   string
}

var (
	NonEvaluated = Value{typ: ValueNonEvaluated}
	ErrorValue   = Value{typ: ValueError}
)

func IntValue(v int64) Value { return Value{typ: ValueInteger, i: v} }
func RealValue(v float64) Value { return Value{typ: ValueReal, r: v} }
func StringValue(v string) Value { return Value{typ: ValueString, s: v} }
func BoolValue(v bool) Value {
	if v {
		return Value{typ: ValueBool, i: 1}
	}
	return Value{typ: ValueBool}
}

// Type returns the value's tag.
func (v Value) Type() ValueType { return v.typ }

// IsValid reports whether the value carries data.
func (v Value) IsValid() bool {
	return v.typ != ValueNonEvaluated && v.typ != ValueError
}

func (v Value) IsNonEvaluated() bool { return v.typ == ValueNonEvaluated }

// isIntegral is true for bool and integer values.
func (v Value) isIntegral() bool {
	return v.typ == ValueBool || v.typ == ValueInteger
}

func (v Value) AsBool() bool {
	switch v.typ {
	case ValueBool, ValueInteger:
		return v.i != 0
	case ValueReal:
		return v.r != 0
	case ValueString:
		return v.s != ""
	}
	return false
}

// AsLong converts the value to an integer; reals are floored.
func (v Value) AsLong() int64 {
	switch v.typ {
	case ValueBool, ValueInteger:
		return v.i
	case ValueReal:
		return int64(math.Floor(v.r))
	case ValueString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func (v Value) AsReal() float64 {
	switch v.typ {
	case ValueBool, ValueInteger:
		return float64(v.i)
	case ValueReal:
		return v.r
	case ValueString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func (v Value) AsString() string {
	switch v.typ {
	case ValueBool:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case ValueInteger:
		return strconv.FormatInt(v.i, 10)
	case ValueReal:
		return strconv.FormatFloat(v.r, 'g', -1, 64)
	case ValueString:
		return v.s
	}
	return ""
}

func (v Value) AsWord() uint16 { return uint16(v.AsLong() & 0xffff) }
func (v Value) AsByte() byte { return byte(v.AsLong() & 0xff) }

// numberValue folds a real result back to an integer when it is whole and
// the operands were integral.
func numberValue(f float64, integral bool) Value {
	if integral && f == math.Trunc(f) && math.Abs(f) < 1<<62 {
		return IntValue(int64(f))
	}
	return RealValue(f)
}
