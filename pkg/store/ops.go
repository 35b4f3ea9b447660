package store

import (
	"fmt"
	"math"
)

// OpKind selects one operator from the closed vocabulary applied by
// event folds. Operators are registered in fixed tables; stored data can
// only ever name one of them, never inject behavior.
type OpKind string

const (
	// OpReplace sets the item to the event value.
	OpReplace OpKind = "replace"
	// OpDelete removes the item; a no-op when absent.
	OpDelete OpKind = "delete"

	// Binary combines: item = op(existing, value). A missing item
	// starts from the operator's identity (0 for arithmetic, "" for
	// concat).
	OpAdd    OpKind = "add"
	OpSub    OpKind = "sub"
	OpMul    OpKind = "mul"
	OpDiv    OpKind = "div"
	OpMod    OpKind = "mod"
	OpConcat OpKind = "concat"

	// Unary transforms: item = op(existing). A missing item starts
	// from the operator's zero value (0 for neg, false for not).
	OpNeg OpKind = "neg"
	OpNot OpKind = "not"
)

type binaryOp struct {
	identity any
	apply    func(existing, value any) (any, error)
}

type unaryOp struct {
	zero  any
	apply func(existing any) (any, error)
}

var binaryOps = map[OpKind]binaryOp{
	OpAdd: {identity: float64(0), apply: numericOp(func(a, b float64) float64 { return a + b })},
	OpSub: {identity: float64(0), apply: numericOp(func(a, b float64) float64 { return a - b })},
	OpMul: {identity: float64(0), apply: numericOp(func(a, b float64) float64 { return a * b })},
	OpDiv: {identity: float64(0), apply: numericOp(func(a, b float64) float64 { return a / b })},
	OpMod: {identity: float64(0), apply: numericOp(math.Mod)},
	OpConcat: {identity: "", apply: func(existing, value any) (any, error) {
		a, aok := existing.(string)
		b, bok := value.(string)
		if !aok || !bok {
			return nil, fmt.Errorf("%w: concat needs string operands, got %T and %T", ErrInvalidOperator, existing, value)
		}
		return a + b, nil
	}},
}

var unaryOps = map[OpKind]unaryOp{
	OpNeg: {zero: float64(0), apply: func(existing any) (any, error) {
		f, ok := asFloat(existing)
		if !ok {
			return nil, fmt.Errorf("%w: neg needs a numeric operand, got %T", ErrInvalidOperator, existing)
		}
		return -f, nil
	}},
	OpNot: {zero: false, apply: func(existing any) (any, error) {
		b, ok := existing.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: not needs a boolean operand, got %T", ErrInvalidOperator, existing)
		}
		return !b, nil
	}},
}

func numericOp(fn func(a, b float64) float64) func(existing, value any) (any, error) {
	return func(existing, value any) (any, error) {
		a, aok := asFloat(existing)
		b, bok := asFloat(value)
		if !aok || !bok {
			return nil, fmt.Errorf("%w: numeric operator needs numeric operands, got %T and %T", ErrInvalidOperator, existing, value)
		}
		return fn(a, b), nil
	}
}

// asFloat coerces the numeric types the codecs produce: float64 from
// JSON, the full integer spread from CBOR.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// opTakesValue reports whether the operator requires an operand, and
// whether the operator is known at all.
func opTakesValue(op OpKind) (takesValue, known bool) {
	switch {
	case op == OpReplace:
		return true, true
	case op == OpDelete:
		return false, true
	default:
		if _, ok := binaryOps[op]; ok {
			return true, true
		}
		if _, ok := unaryOps[op]; ok {
			return false, true
		}
		return false, false
	}
}
