package sql

import errors "gopkg.in/src-d/go-errors.v1"

// Error kinds form the closed set spec §7 requires. Each is a
// package-level *errors.Kind, exactly the convention the teacher's
// sql/parse tests use (errUnexpectedSyntax, errInvalidDescribeFormat):
// a kind is created once with errors.NewKind and turned into an error
// with Kind.New(args...); callers test for it with Kind.Is(err).
var (
	ErrInvalidTable     = errors.NewKind("table not found: %s")
	ErrInvalidColumn    = errors.NewKind("invalid column: %s")
	ErrDuplicated       = errors.NewKind("%s '%s' already exists")
	ErrPrimaryKeyNotFound = errors.NewKind("table has no primary key")
	ErrColumnsEmpty     = errors.NewKind("table must have at least one column")
	ErrNotNull          = errors.NewKind("column %q does not accept null values")
	ErrDuplicateKey     = errors.NewKind("duplicate value for unique key %q: %v")
	ErrTypeMismatch     = errors.NewKind("type mismatch: %s")
	ErrOutOfBounds      = errors.NewKind("index out of bounds: %s")
	ErrAmbiguousColumn  = errors.NewKind("ambiguous column: %s")
	ErrUnsupportedStmt  = errors.NewKind("unsupported statement: %s")
	ErrInternalStorage  = errors.NewKind("internal storage error: %s")
	ErrSerialization    = errors.NewKind("serialization error: %s")
)
