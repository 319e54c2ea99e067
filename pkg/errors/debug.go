package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// maxDumpChain bounds the unwrapped chain recorded in logs.
const maxDumpChain = 8

// PGKind names the SQLSTATE classes the API cares about.
type PGKind string

const (
	PGKindUnique        PGKind = "unique_violation"
	PGKindForeignKey    PGKind = "foreign_key_violation"
	PGKindCheck         PGKind = "check_violation"
	PGKindNotNull       PGKind = "not_null_violation"
	PGKindExclusion     PGKind = "exclusion_violation"
	PGKindSerialization PGKind = "serialization_failure"
	PGKindDeadlock      PGKind = "deadlock_detected"
	PGKindCanceled      PGKind = "query_canceled"
	PGKindOther         PGKind = "other"
)

var pgKinds = map[string]PGKind{
	"23505": PGKindUnique,
	"23503": PGKindForeignKey,
	"23514": PGKindCheck,
	"23502": PGKindNotNull,
	"23P01": PGKindExclusion,
	"40001": PGKindSerialization,
	"40P01": PGKindDeadlock,
	"57014": PGKindCanceled,
}

// ErrorDump is the log-side view of an error: the typed code, the unwrapped
// chain and any Postgres diagnostics from either pgx or lib/pq.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain     []string `json:"chain,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGKind       PGKind `json:"pg_kind,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Transient reports whether the database failure is worth retrying as-is.
func (d ErrorDump) Transient() bool {
	switch d.PGKind {
	case PGKindSerialization, PGKindDeadlock:
		return true
	}
	return false
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
		Code:       CodeOf(err),
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		if len(d.Chain) == maxDumpChain {
			d.Truncated = true
			break
		}
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	default:
		return d
	}

	d.PGKind = PGKindOther
	if kind, ok := pgKinds[d.PGCode]; ok {
		d.PGKind = kind
	}
	return d
}
