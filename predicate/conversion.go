// Copyright 2026 The Recordcore Authors
// This file is part of recordcore.
//
// Recordcore is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Recordcore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with recordcore. If not, see <http://www.gnu.org/licenses/>.

package predicate

import "fmt"

// ExprKind discriminates an Expression node. Expression is the wider,
// caller-facing AST a query frontend might build; only a subset of it maps
// onto Predicate.
type ExprKind int

const (
	ExprComparison ExprKind = iota
	ExprAnd
	ExprOr
	ExprNot
	ExprIsNull
	ExprIsNotNull
	ExprLiteralTrue
	ExprLiteralFalse
	ExprSubquery // unsupported: always fails conversion to Predicate
	ExprFuncCall // unsupported
	ExprArith    // unsupported
)

// Expression is the caller-facing AST, a strict superset of what Predicate
// can express.
type Expression struct {
	Kind     ExprKind
	Field    string
	Op       Op
	Value    any
	Children []Expression
	Operand  *Expression
}

// ConversionError names which part of an Expression fell outside the
// lossless Predicate subset.
type ConversionError struct {
	Kind ExprKind
	Msg  string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("predicate conversion: unsupported expression kind %d: %s", e.Kind, e.Msg)
}

// ToPredicate converts e to a Predicate. It fails with ConversionError for
// any node outside the supported subset (subqueries, function calls,
// arithmetic) — those forms have no Predicate representation, lossy or
// otherwise.
func ToPredicate(e Expression) (Predicate, error) {
	switch e.Kind {
	case ExprComparison:
		return Comparison(e.Field, e.Op, e.Value), nil
	case ExprAnd, ExprOr:
		children := make([]Predicate, 0, len(e.Children))
		for _, c := range e.Children {
			p, err := ToPredicate(c)
			if err != nil {
				return Predicate{}, err
			}
			children = append(children, p)
		}
		if e.Kind == ExprAnd {
			return And(children...), nil
		}
		return Or(children...), nil
	case ExprNot:
		if e.Operand == nil {
			return Predicate{}, &ConversionError{Kind: e.Kind, Msg: "not expression missing operand"}
		}
		p, err := ToPredicate(*e.Operand)
		if err != nil {
			return Predicate{}, err
		}
		return Not(p), nil
	case ExprIsNull:
		return IsNull(e.Field), nil
	case ExprIsNotNull:
		return IsNotNull(e.Field), nil
	case ExprLiteralTrue:
		return True, nil
	case ExprLiteralFalse:
		return False, nil
	default:
		return Predicate{}, &ConversionError{Kind: e.Kind, Msg: "no lossless Predicate representation"}
	}
}

// FromPredicate converts p back to an Expression. Every Predicate variant
// has an exact Expression counterpart, so this direction never fails —
// only ToPredicate's reverse bridge is partial.
func FromPredicate(p Predicate) Expression {
	switch p.Kind {
	case KindComparison:
		return Expression{Kind: ExprComparison, Field: p.Field, Op: p.Op, Value: p.Value}
	case KindAnd, KindOr:
		children := make([]Expression, 0, len(p.Children))
		for _, c := range p.Children {
			children = append(children, FromPredicate(c))
		}
		kind := ExprAnd
		if p.Kind == KindOr {
			kind = ExprOr
		}
		return Expression{Kind: kind, Children: children}
	case KindNot:
		var operand *Expression
		if p.Operand != nil {
			e := FromPredicate(*p.Operand)
			operand = &e
		}
		return Expression{Kind: ExprNot, Operand: operand}
	case KindIsNull:
		return Expression{Kind: ExprIsNull, Field: p.Field}
	case KindIsNotNull:
		return Expression{Kind: ExprIsNotNull, Field: p.Field}
	case KindTrue:
		return Expression{Kind: ExprLiteralTrue}
	default:
		return Expression{Kind: ExprLiteralFalse}
	}
}
