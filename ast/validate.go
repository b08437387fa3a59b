package ast

import (
	"github.com/cockroachdb/errors"
)

var MalformedError = errors.New("malformed ast")

// Validate checks the structural shape of n: non-empty identifiers, operator
// arity, projection lists and join sides.
func Validate(n Node) error {
	var err error
	Walk(n, func(c Node) bool {
		if err != nil {
			return false
		}
		err = validateNode(c)
		return err == nil
	})
	return err
}

func validateNode(n Node) error {
	switch x := n.(type) {
	case *Identifier:
		if len(x.Parts) == 0 {
			return errors.Wrap(MalformedError, "identifier without parts")
		}
		for _, p := range x.Parts {
			if p == "" {
				return errors.Wrapf(MalformedError, "identifier %v has an empty part", x.Parts)
			}
		}
	case *UnaryOperation:
		if len(x.Args) != 1 || x.Args[0] == nil {
			return errors.Wrapf(MalformedError, "unary operation %q takes one argument, got %d", x.Op, len(x.Args))
		}
	case *BinaryOperation:
		if len(x.Args) != 2 || x.Args[0] == nil || x.Args[1] == nil {
			return errors.Wrapf(MalformedError, "binary operation %q takes two arguments, got %d", x.Op, len(x.Args))
		}
	case *Function:
		if x.Op == "" {
			return errors.Wrap(MalformedError, "function without a name")
		}
		for _, a := range x.Args {
			if a == nil {
				return errors.Wrapf(MalformedError, "function %s has a nil argument", x.Op)
			}
		}
	case *OrderBy:
		if x.Field == nil {
			return errors.Wrap(MalformedError, "order by without a field")
		}
	case *Select:
		if len(x.Targets) == 0 {
			return errors.Wrap(MalformedError, "select without targets")
		}
		for _, t := range x.Targets {
			if t == nil {
				return errors.Wrap(MalformedError, "select has a nil target")
			}
		}
		for _, g := range x.GroupBy {
			if g == nil {
				return errors.Wrap(MalformedError, "group by has a nil column")
			}
		}
		if x.Limit != nil && *x.Limit < 0 {
			return errors.Wrapf(MalformedError, "negative limit %d", *x.Limit)
		}
		if x.Offset != nil && *x.Offset < 0 {
			return errors.Wrapf(MalformedError, "negative offset %d", *x.Offset)
		}
	case *Join:
		if x.Left == nil || x.Right == nil {
			return errors.Wrap(MalformedError, "join with a missing side")
		}
	case *NativeQuery:
		if x.Integration == "" {
			return errors.Wrap(MalformedError, "native query without an integration")
		}
	case *Union:
		if x.Left == nil || x.Right == nil {
			return errors.Wrap(MalformedError, "union with a missing side")
		}
	}
	return nil
}
