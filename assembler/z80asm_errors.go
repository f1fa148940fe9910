// z80asm_errors.go - Diagnostic codes and messages for the Z80 assembler

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
	"errors"
	"fmt"
)

// ErrorCode identifies a diagnostic. Codes are stable; tooling matches on them.
type ErrorCode string

// ---------------------------------------------------------------------
// Parser errors
// ---------------------------------------------------------------------
const (
	ErrInvalidToken       ErrorCode = "Z0001"
	ErrUnexpectedToken    ErrorCode = "Z0002"
	ErrExpressionExpected ErrorCode = "Z0003"
	ErrLParExpected       ErrorCode = "Z0004"
	ErrRParExpected       ErrorCode = "Z0005"
	ErrMacroParamClose    ErrorCode = "Z0006"
	ErrAssignExpected     ErrorCode = "Z0007"
	ErrToExpected         ErrorCode = "Z0008"
	ErrIdentExpected      ErrorCode = "Z0009"
	ErrStringExpected     ErrorCode = "Z0010"
	ErrInvalidLiteral     ErrorCode = "Z0114"
	ErrOperandExpected    ErrorCode = "Z0106"
	ErrSymbolExpected     ErrorCode = "Z0107"
	ErrParseTimeFunction  ErrorCode = "Z0112"
)

// ---------------------------------------------------------------------
// Directive, include and pragma errors
// ---------------------------------------------------------------------
const (
	ErrIncludeNotFound     ErrorCode = "Z0201"
	ErrIncludeRepeated     ErrorCode = "Z0202"
	ErrIncludeCircular     ErrorCode = "Z0203"
	ErrIncludeRead         ErrorCode = "Z0204"
	ErrDirectiveUnclosed   ErrorCode = "Z0205"
	ErrDirectiveModel      ErrorCode = "Z0206"
	ErrDirectiveElse       ErrorCode = "Z0207"
	ErrDirectiveEndif      ErrorCode = "Z0208"
	ErrModelTwice          ErrorCode = "Z0302"
	ErrModelUnknown        ErrorCode = "Z0303"
	ErrEquWithoutLabel     ErrorCode = "Z0304"
	ErrBankWithLabel       ErrorCode = "Z0305"
	ErrBankRange           ErrorCode = "Z0306"
	ErrBankOffset          ErrorCode = "Z0307"
	ErrBankModel           ErrorCode = "Z0308"
	ErrBankReused          ErrorCode = "Z0309"
	ErrEntNotGlobal        ErrorCode = "Z0310"
	ErrVarWithoutLabel     ErrorCode = "Z0311"
	ErrVarReusesSymbol     ErrorCode = "Z0312"
	ErrSkipBackwards       ErrorCode = "Z0313"
	ErrXorgTwice           ErrorCode = "Z0314"
	ErrStringValueExpected ErrorCode = "Z0315"
	ErrDefhNotString       ErrorCode = "Z0316"
	ErrDefhInvalid         ErrorCode = "Z0317"
	ErrAlignRange          ErrorCode = "Z0318"
	ErrIncludeBinName      ErrorCode = "Z0319"
	ErrIncludeBinOffset    ErrorCode = "Z0320"
	ErrIncludeBinLength    ErrorCode = "Z0321"
	ErrIncludeBinRead      ErrorCode = "Z0322"
	ErrSegmentTooLong      ErrorCode = "Z0323"
	ErrDefgxNotString      ErrorCode = "Z0324"
	ErrDefgEmpty           ErrorCode = "Z0325"
	ErrCompareBinName      ErrorCode = "Z0326"
	ErrCompareBinOffset    ErrorCode = "Z0327"
	ErrCompareBinLength    ErrorCode = "Z0328"
	ErrCompareBinRead      ErrorCode = "Z0329"
	ErrCompareBinMismatch  ErrorCode = "Z0330"
)

// ---------------------------------------------------------------------
// Instruction errors
// ---------------------------------------------------------------------
const (
	ErrUnknownInstruction ErrorCode = "Z0401"
	ErrJrCondition        ErrorCode = "Z0402"
	ErrRelativeJump       ErrorCode = "Z0403"
	ErrRstTarget          ErrorCode = "Z0404"
	ErrImMode             ErrorCode = "Z0405"
	ErrOutZeroOnly        ErrorCode = "Z0406"
	ErrBitIndex           ErrorCode = "Z0407"
	ErrAluAlternative     ErrorCode = "Z0408"
	ErrAluFirstOperand    ErrorCode = "Z0409"
	ErrPopImmediate       ErrorCode = "Z0412"
	ErrStackOperand       ErrorCode = "Z0413"
	ErrNextOnly           ErrorCode = "Z0414"
)

// ---------------------------------------------------------------------
// Symbol and expression errors
// ---------------------------------------------------------------------
const (
	ErrDuplicateSymbol   ErrorCode = "Z0501"
	ErrForVariableExists ErrorCode = "Z0502"
	ErrLabelNotAllowed   ErrorCode = "Z0503"
	ErrNumericExpected   ErrorCode = "Z0601"
	ErrIntegerExpected   ErrorCode = "Z0602"
	ErrStringNotAllowed  ErrorCode = "Z0603"
	ErrInvalidOperands   ErrorCode = "Z0604"
	ErrUnresolvedSymbol  ErrorCode = "Z0605"
	ErrEvaluation        ErrorCode = "Z0606"
)

// ---------------------------------------------------------------------
// Statement errors
// ---------------------------------------------------------------------
const (
	ErrMissingEnd       ErrorCode = "Z0701"
	ErrLoopTooLong      ErrorCode = "Z0702"
	ErrTooManyLoopErrs  ErrorCode = "Z0703"
	ErrOrphanEnd        ErrorCode = "Z0704"
	ErrCounterOutside   ErrorCode = "Z0705"
	ErrZeroStep         ErrorCode = "Z0706"
	ErrBreakOutside     ErrorCode = "Z0707"
	ErrContinueOutside  ErrorCode = "Z0708"
	ErrDuplicateElse    ErrorCode = "Z0709"
	ErrStructTooLong    ErrorCode = "Z0801"
	ErrUnknownField     ErrorCode = "Z0802"
	ErrFieldOutside     ErrorCode = "Z0803"
	ErrStructNoName     ErrorCode = "Z0804"
	ErrStructTempName   ErrorCode = "Z0805"
	ErrStructNameUsed   ErrorCode = "Z0806"
	ErrStructEndLabel   ErrorCode = "Z0807"
	ErrStructLine       ErrorCode = "Z0808"
	ErrStructArgs       ErrorCode = "Z0809"
	ErrDuplicateField   ErrorCode = "Z0810"
	ErrModuleNoName     ErrorCode = "Z0901"
	ErrModuleTempName   ErrorCode = "Z0902"
	ErrModuleNameUsed   ErrorCode = "Z0903"
	ErrMacroDupArg      ErrorCode = "Z1001"
	ErrMacroNoName      ErrorCode = "Z1002"
	ErrMacroTempName    ErrorCode = "Z1003"
	ErrMacroNameUsed    ErrorCode = "Z1004"
	ErrMacroNested      ErrorCode = "Z1005"
	ErrMacroUnknownArg  ErrorCode = "Z1006"
	ErrMacroUnknown     ErrorCode = "Z1007"
	ErrMacroTooManyArgs ErrorCode = "Z1008"
	ErrMacroTimeFunc    ErrorCode = "Z1009"
	ErrMacroParamInBody ErrorCode = "Z1010"
	ErrMacroParamOut    ErrorCode = "Z1011"
	ErrMacroInvocation  ErrorCode = "Z1012"
	ErrStructNoParens   ErrorCode = "Z1013"
	ErrMacroNoParens    ErrorCode = "Z1014"
	ErrMacroDepth       ErrorCode = "Z1015"
	ErrUserError        ErrorCode = "Z2000"
)

var errorMessages = map[ErrorCode]string{
	ErrInvalidToken:       "Invalid token: '%s'",
	ErrUnexpectedToken:    "Unexpected token: '%s'",
	ErrExpressionExpected: "Expression expected",
	ErrLParExpected:       "'(' expected",
	ErrRParExpected:       "')' expected",
	ErrMacroParamClose:    "'}}' expected",
	ErrAssignExpected:     "'=' expected",
	ErrToExpected:         "'.to' expected",
	ErrIdentExpected:      "Identifier expected",
	ErrStringExpected:     "String literal expected",
	ErrInvalidLiteral:     "Invalid numeric literal: '%s'",
	ErrOperandExpected:    "16-bit register expected",
	ErrSymbolExpected:     "Symbol expected",
	ErrParseTimeFunction:  "Invalid argument of a parse-time function",

	ErrIncludeNotFound:     "Cannot find include file: '%s'",
	ErrIncludeRepeated:     "Include file '%s' is included more than once in the same parent",
	ErrIncludeCircular:     "Include file '%s' causes circular file reference",
	ErrIncludeRead:         "Error reading include file '%s': %s",
	ErrDirectiveUnclosed:   "Missing #endif directive",
	ErrDirectiveModel:      "Unexpected model name in #ifmod/#ifnmod: '%s'",
	ErrDirectiveElse:       "#else directive without a matching #if",
	ErrDirectiveEndif:      "#endif directive without a matching #if",
	ErrModelTwice:          "The .model pragma can be used only once",
	ErrModelUnknown:        "Cannot use an unknown model type: '%s'",
	ErrEquWithoutLabel:     "The .equ pragma requires a label",
	ErrBankWithLabel:       "The .bank pragma cannot have a label",
	ErrBankRange:           "The .bank pragma value must be between 0 and 7",
	ErrBankOffset:          "The .bank pragma offset value must be between 0 and 0x3fff",
	ErrBankModel:           "The .bank pragma cannot be used with the current model",
	ErrBankReused:          "You have already used .bank %d",
	ErrEntNotGlobal:        "The %s pragma can be used only in the global scope",
	ErrVarWithoutLabel:     "The .var pragma requires a label",
	ErrVarReusesSymbol:     "The .var pragma cannot redefine a non-variable symbol",
	ErrSkipBackwards:       "The .skip pragma cannot go back from the current address (%04X < %04X)",
	ErrXorgTwice:           "The .xorg pragma cannot change the save address of a segment that already has code",
	ErrStringValueExpected: "The %s pragma expects a string value",
	ErrDefhNotString:       "The .defh pragma expects a string value",
	ErrDefhInvalid:         "The .defh pragma requires a string with an even number of hexadecimal digits",
	ErrAlignRange:          "The .align pragma value must be between 1 and 0x4000",
	ErrIncludeBinName:      "The .includebin pragma expects a file name string",
	ErrIncludeBinOffset:    "Invalid .includebin offset value (negative, or exceeds the length of the file)",
	ErrIncludeBinLength:    "Invalid .includebin length value (negative, or segment exceeds the length of the file)",
	ErrIncludeBinRead:      "Error reading binary file '%s': %s",
	ErrSegmentTooLong:      "Emitting the code would exceed the maximum segment length of %d bytes",
	ErrDefgxNotString:      "The .defgx pragma expects a string pattern",
	ErrDefgEmpty:           "The .defg/.defgx pragma requires a non-empty pattern",
	ErrCompareBinName:      "The .comparebin pragma expects a file name string",
	ErrCompareBinOffset:    "Invalid .comparebin offset value (negative, or exceeds the length of the file)",
	ErrCompareBinLength:    "Invalid .comparebin length value (negative, or segment exceeds the length of the file)",
	ErrCompareBinRead:      "Error reading binary file '%s': %s",
	ErrCompareBinMismatch:  "Binary comparison failed: %s",

	ErrUnknownInstruction: "Unknown or unsupported instruction: '%s'",
	ErrJrCondition:        "The jr instruction accepts only nz, z, nc and c conditions",
	ErrRelativeJump:       "Relative jump distance should be between -128 and 127, not %d",
	ErrRstTarget:          "The rst instruction accepts only 0x00, 0x08, ..., 0x38, not %#x",
	ErrImMode:             "The im instruction accepts only 0, 1 and 2, not %d",
	ErrOutZeroOnly:        "The out (c),n instruction accepts only 0 as its second operand",
	ErrBitIndex:           "Bit index should be between 0 and 7, not %d",
	ErrAluAlternative:     "The alternative syntax of this instruction requires 'a' as its first operand",
	ErrAluFirstOperand:    "The first operand of this instruction must be 'a'",
	ErrPopImmediate:       "The pop instruction cannot have an expression operand",
	ErrStackOperand:       "The push and pop instructions accept only af, bc, de, hl, ix and iy",
	ErrNextOnly:           "This instruction can be used only with the ZX Spectrum Next model",

	ErrDuplicateSymbol:   "Symbol '%s' is already defined",
	ErrForVariableExists: "Variable '%s' is already declared, it cannot be used as a .for variable",
	ErrLabelNotAllowed:   "A label cannot be used with %s",
	ErrNumericExpected:   "A numeric expression is expected",
	ErrIntegerExpected:   "An integer expression is expected",
	ErrStringNotAllowed:  "A string value cannot be used here",
	ErrInvalidOperands:   "The operands of this instruction are invalid",
	ErrUnresolvedSymbol:  "Symbol '%s' cannot be resolved",
	ErrEvaluation:        "Expression cannot be evaluated: %s",

	ErrMissingEnd:       "Missing end statement for %s",
	ErrLoopTooLong:      "The loop exceeds the maximum number (0xffff) of iterations",
	ErrTooManyLoopErrs:  "Too many errors detected in the loop, its processing is stopped",
	ErrOrphanEnd:        "%s found without a matching opening statement",
	ErrCounterOutside:   "$cnt can be used only within a loop",
	ErrZeroStep:         "The .step value of a .for loop cannot be zero",
	ErrBreakOutside:     ".break can be used only within a loop",
	ErrContinueOutside:  ".continue can be used only within a loop",
	ErrDuplicateElse:    "%s cannot follow an .else section",
	ErrStructTooLong:    "The invocation of struct '%s' exceeds its size of %d bytes (%d)",
	ErrUnknownField:     "Struct '%s' has no field named '%s'",
	ErrFieldOutside:     "Field assignment is allowed only within a struct invocation",
	ErrStructNoName:     "A struct definition requires a name",
	ErrStructTempName:   "A temporary name (%s) cannot be used as a struct name",
	ErrStructNameUsed:   "Struct name '%s' is already used",
	ErrStructEndLabel:   "The .ends statement cannot have a label",
	ErrStructLine:       "Only byte-emitting pragmas are allowed within a struct definition",
	ErrStructArgs:       "Struct '%s' cannot be invoked with arguments",
	ErrDuplicateField:   "Field '%s' is already defined in this struct",
	ErrModuleNoName:     "A .module statement requires a name",
	ErrModuleTempName:   "A temporary name (%s) cannot be used as a module name",
	ErrModuleNameUsed:   "Module '%s' is already defined",
	ErrMacroDupArg:      "Duplicate macro argument: '%s'",
	ErrMacroNoName:      "A macro definition requires a name",
	ErrMacroTempName:    "A temporary name (%s) cannot be used as a macro name",
	ErrMacroNameUsed:    "Macro name '%s' is already used",
	ErrMacroNested:      "A macro definition cannot contain another macro definition",
	ErrMacroUnknownArg:  "Unknown macro argument: '%s'",
	ErrMacroUnknown:     "Unknown macro: '%s'",
	ErrMacroTooManyArgs: "Macro '%s' accepts %d arguments, but %d are given",
	ErrMacroTimeFunc:    "A macro-time function can be used only with a macro parameter",
	ErrMacroParamInBody: "Macro parameters cannot remain after the macro expansion",
	ErrMacroParamOut:    "Macro parameters can be used only within a macro definition",
	ErrMacroInvocation:  "Error in macro invocation",
	ErrStructNoParens:   "Struct '%s' must be invoked with parentheses",
	ErrMacroNoParens:    "Macro '%s' must be invoked with parentheses",
	ErrMacroDepth:       "Macro invocations are nested deeper than %d levels",
	ErrUserError:        "%s",
}

// message formats the diagnostic text of a code.
func (c ErrorCode) message(args ...interface{}) string {
	format, ok := errorMessages[c]
	if !ok {
		return string(c)
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// AssemblerError is a single diagnostic attached to a source position.
type AssemblerError struct {
	Code      ErrorCode
	Message   string
	File      string
	FileIndex int
	Line      int
	Column    int
	IsWarning bool
}

// Error formats the diagnostic in file:line:col form.
func (e AssemblerError) Error() string {
	kind := "error"
	if e.IsWarning {
		kind = "warning"
	}
	return fmt.Sprintf("%s:%d:%d: %s %s: %s", e.File, e.Line, e.Column, kind, e.Code, e.Message)
}

// errorList joins a set of diagnostics into a single Go error.
func errorList(list []AssemblerError) error {
	var errs []error
	for _, e := range list {
		if !e.IsWarning {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}
