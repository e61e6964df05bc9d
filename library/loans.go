package library

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

// The loan state machine. A loan is Open while return_date is NULL and
// Closed once ReturnBook sets it; Open -> Closed is the only transition.
// Borrow and ReturnBook each update two tables (loans and books.available)
// inside one transaction.

// Borrow records a member taking a book out. It verifies the book exists and
// is available and that the member exists, inserts an open loan with
// loan_date = today and the given due date, and marks the book unavailable.
// Loans are created only through this operation, never by a bare insert.
func (s *Store) Borrow(ctx context.Context, bookID, memberID int64, dueDate time.Time) (int64, error) {
	if dueDate.IsZero() {
		return 0, validationError("due_date", "is required")
	}

	var loanID int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var available bool
		err := tx.QueryRowxContext(ctx, `SELECT available FROM books WHERE id = ?`, bookID).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError("book %d does not exist", bookID)
		}
		if err != nil {
			return executionError("look up book availability", err)
		}
		if !available {
			return notAvailableError("book %d is already on loan", bookID)
		}

		var exists bool
		if err := tx.QueryRowxContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM members WHERE id = ?)`, memberID).Scan(&exists); err != nil {
			return executionError("look up member", err)
		}
		if !exists {
			return notFoundError("member %d does not exist", memberID)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO loans (book_id, member_id, loan_date, due_date) VALUES (?, ?, ?, ?)`,
			bookID, memberID, dateOnly(time.Now()), dateOnly(dueDate))
		if err != nil {
			return executionError("create loan", err)
		}
		if loanID, err = res.LastInsertId(); err != nil {
			return executionError("read loan id", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE books SET available = 0 WHERE id = ?`, bookID); err != nil {
			return executionError("mark book unavailable", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("book borrowed", "book_id", bookID, "member_id", memberID, "loan_id", loanID)
	return loanID, nil
}

// ReturnBook closes an open loan: it sets return_date = today and marks the
// referenced book available again. Returning a loan that is already closed
// fails without modifying anything.
func (s *Store) ReturnBook(ctx context.Context, loanID int64) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var loan Loan
		err := tx.GetContext(ctx, &loan, `SELECT * FROM loans WHERE id = ?`, loanID)
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError("loan %d does not exist", loanID)
		}
		if err != nil {
			return executionError("look up loan", err)
		}
		if loan.ReturnDate != nil {
			return alreadyReturnedError("loan %d was already returned on %s",
				loanID, loan.ReturnDate.Format("2006-01-02"))
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE loans SET return_date = ? WHERE id = ?`, dateOnly(time.Now()), loanID); err != nil {
			return executionError("close loan", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE books SET available = 1 WHERE id = ?`, loan.BookID); err != nil {
			return executionError("mark book available", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("book returned", "loan_id", loanID)
	return nil
}

// GetLoan returns the loan with the given id, or (nil, nil) when no such
// loan exists.
func (s *Store) GetLoan(ctx context.Context, id int64) (*Loan, error) {
	var l Loan
	found, err := s.getRow(ctx, &l, `SELECT * FROM loans WHERE id = ?`, id)
	if err != nil || !found {
		return nil, err
	}
	return &l, nil
}

// LoansByMember returns a member's loans joined with the borrowed books,
// most recent first. With activeOnly, closed loans are filtered out.
func (s *Store) LoansByMember(ctx context.Context, memberID int64, activeOnly bool) ([]MemberLoan, error) {
	ds := dialect.From(goqu.T("loans")).
		Join(goqu.T("books"), goqu.On(goqu.I("loans.book_id").Eq(goqu.I("books.id")))).
		Select(
			goqu.I("loans.id"),
			goqu.I("loans.book_id"),
			goqu.I("loans.member_id"),
			goqu.I("loans.loan_date"),
			goqu.I("loans.due_date"),
			goqu.I("loans.return_date"),
			goqu.I("books.title").As("book_title"),
			goqu.I("books.author").As("book_author"),
			goqu.I("books.isbn").As("book_isbn"),
		).
		Where(goqu.I("loans.member_id").Eq(memberID)).
		Order(goqu.I("loans.loan_date").Desc(), goqu.I("loans.id").Desc())
	if activeOnly {
		ds = ds.Where(goqu.I("loans.return_date").IsNull())
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, executionError("build member loans query", err)
	}

	loans := make([]MemberLoan, 0)
	if err := s.selectRows(ctx, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

// ActiveLoans returns all open loans ordered by due date, soonest first.
func (s *Store) ActiveLoans(ctx context.Context) ([]Loan, error) {
	loans := make([]Loan, 0)
	err := s.selectRows(ctx, &loans,
		`SELECT * FROM loans WHERE return_date IS NULL ORDER BY due_date`)
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// OverdueLoans returns open loans whose due date has passed, joined with
// book and member details, ordered by due date.
func (s *Store) OverdueLoans(ctx context.Context) ([]OverdueLoan, error) {
	query, args, err := dialect.From(goqu.T("loans")).
		Join(goqu.T("books"), goqu.On(goqu.I("loans.book_id").Eq(goqu.I("books.id")))).
		Join(goqu.T("members"), goqu.On(goqu.I("loans.member_id").Eq(goqu.I("members.id")))).
		Select(
			goqu.I("loans.id"),
			goqu.I("loans.loan_date"),
			goqu.I("loans.due_date"),
			goqu.I("books.title").As("book_title"),
			goqu.I("books.author").As("book_author"),
			goqu.I("members.name").As("member_name"),
			goqu.I("members.email").As("member_email"),
		).
		Where(
			goqu.I("loans.return_date").IsNull(),
			goqu.I("loans.due_date").Lt(dateOnly(time.Now())),
		).
		Order(goqu.I("loans.due_date").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, executionError("build overdue loans query", err)
	}

	loans := make([]OverdueLoan, 0)
	if err := s.selectRows(ctx, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

// DeleteLoan removes one loan row and reports whether a row was removed.
// Deleting loan history is rarely what you want; it exists for completeness
// and for correcting bad records. The referenced book's availability is not
// touched.
func (s *Store) DeleteLoan(ctx context.Context, id int64) (bool, error) {
	n, err := s.RunStatement(ctx, `DELETE FROM loans WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
