package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateSession means the generated session_id already exists.
	ErrDuplicateSession = errors.New("session id already exists")

	// ErrDuplicateUser means the matricule (or email) is already registered.
	ErrDuplicateUser = errors.New("matricule or email already registered")

	// ErrDuplicateAttendance means a presence row for the same
	// (student_id, session_id) pair already exists. The unique constraint is
	// the authority here: concurrent inserts both pass any application-level
	// check, only the constraint catches the loser.
	ErrDuplicateAttendance = errors.New("attendance already recorded")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
