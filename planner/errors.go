package planner

import (
	"fedplan/ast"
	"fedplan/resolver"
	"github.com/cockroachdb/errors"
)

var (
	NoIntegrationError        = errors.New("no integration for table")
	AmbiguousNamespaceError   = resolver.AmbiguousNamespaceError
	UnsupportedConstructError = errors.New("unsupported construct")
	MalformedAstError         = ast.MalformedError
	UnknownTableError         = errors.New("unknown table")
	AmbiguousColumnError      = errors.New("ambiguous column")
	InvalidPlanError          = errors.New("invalid plan")
)

func unsupportedf(format string, args ...any) error {
	return errors.Wrapf(UnsupportedConstructError, format, args...)
}

// ErrorKind classifies a planning error for metrics and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, NoIntegrationError):
		return "no_integration"
	case errors.Is(err, AmbiguousNamespaceError):
		return "ambiguous_namespace"
	case errors.Is(err, UnsupportedConstructError):
		return "unsupported_construct"
	case errors.Is(err, MalformedAstError):
		return "malformed_ast"
	case errors.Is(err, UnknownTableError):
		return "unknown_table"
	case errors.Is(err, AmbiguousColumnError):
		return "ambiguous_column"
	case errors.Is(err, InvalidPlanError):
		return "invalid_plan"
	default:
		return "internal"
	}
}
