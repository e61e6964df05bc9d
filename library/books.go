package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
)

// bookUpdatableFields lists what UpdateBook accepts. id and created_at are
// system-managed; available is owned by the loan state machine.
var bookUpdatableFields = []string{"title", "author", "isbn", "published_year"}

// CreateBook validates and inserts a new book, returning its identity. The
// book starts available with created_at set by the database.
func (s *Store) CreateBook(ctx context.Context, title, author, isbn string, publishedYear *int) (int64, error) {
	if err := ValidateNotEmpty(title, "title"); err != nil {
		return 0, err
	}
	if err := ValidateNotEmpty(author, "author"); err != nil {
		return 0, err
	}
	if err := ValidateISBN(isbn); err != nil {
		return 0, err
	}
	if err := ValidateYear(publishedYear); err != nil {
		return 0, err
	}

	id, err := s.insertRow(ctx,
		`INSERT INTO books (title, author, isbn, published_year) VALUES (?, ?, ?, ?)`,
		title, author, isbn, publishedYear)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, duplicateError("a book with ISBN %q already exists", isbn)
		}
		return 0, err
	}
	return id, nil
}

// GetBook returns the book with the given id, or (nil, nil) when no such
// book exists.
func (s *Store) GetBook(ctx context.Context, id int64) (*Book, error) {
	var b Book
	found, err := s.getRow(ctx, &b, `SELECT * FROM books WHERE id = ?`, id)
	if err != nil || !found {
		return nil, err
	}
	return &b, nil
}

// GetBookByISBN returns the book with the given ISBN, or (nil, nil) when no
// such book exists.
func (s *Store) GetBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	var b Book
	found, err := s.getRow(ctx, &b, `SELECT * FROM books WHERE isbn = ?`, isbn)
	if err != nil || !found {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns all books ordered by title ascending, optionally limited
// to those currently available.
func (s *Store) ListBooks(ctx context.Context, availableOnly bool) ([]Book, error) {
	ds := dialect.From("books").Order(goqu.C("title").Asc())
	if availableOnly {
		ds = ds.Where(goqu.C("available").Eq(true))
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, executionError("build book listing", err)
	}

	books := make([]Book, 0)
	if err := s.selectRows(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

// SearchBooks performs a case-insensitive partial match against title or
// author, ordered by title ascending. A blank term matches nothing.
func (s *Store) SearchBooks(ctx context.Context, term string) ([]Book, error) {
	if strings.TrimSpace(term) == "" {
		return []Book{}, nil
	}
	pattern := "%" + term + "%"

	query, args, err := dialect.From("books").
		Where(goqu.Or(
			goqu.C("title").Like(pattern),
			goqu.C("author").Like(pattern),
		)).
		Order(goqu.C("title").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, executionError("build book search", err)
	}

	books := make([]Book, 0)
	if err := s.selectRows(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

// UpdateBook applies the given field changes to one book and reports whether
// a row was affected. Only title, author, isbn, and published_year may be
// changed; available is deliberately rejected so the flag cannot drift from
// actual loan state.
func (s *Store) UpdateBook(ctx context.Context, id int64, changes map[string]any) (bool, error) {
	if len(changes) == 0 {
		return false, validationError("changes", "no fields provided to update")
	}

	rec := goqu.Record{}
	for field, value := range changes {
		switch field {
		case "title", "author":
			str, ok := value.(string)
			if !ok {
				return false, validationError(field, "must be a string")
			}
			if err := ValidateNotEmpty(str, field); err != nil {
				return false, err
			}
			rec[field] = str
		case "isbn":
			str, ok := value.(string)
			if !ok {
				return false, validationError(field, "must be a string")
			}
			if err := ValidateISBN(str); err != nil {
				return false, err
			}
			rec[field] = str
		case "published_year":
			switch v := value.(type) {
			case nil:
				rec[field] = nil
			case int:
				if err := ValidateYear(&v); err != nil {
					return false, err
				}
				rec[field] = v
			case *int:
				if err := ValidateYear(v); err != nil {
					return false, err
				}
				rec[field] = v
			default:
				return false, validationError(field, "must be an integer year or nil")
			}
		default:
			return false, validationError(field,
				fmt.Sprintf("cannot be updated; allowed fields: %s", strings.Join(bookUpdatableFields, ", ")))
		}
	}

	query, args, err := dialect.Update("books").
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return false, executionError("build book update", err)
	}

	n, err := s.RunStatement(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, duplicateError("another book already has this ISBN")
		}
		return false, err
	}
	return n > 0, nil
}

// DeleteBook removes one book and reports whether a row was removed. A book
// that loan rows still reference cannot be deleted.
func (s *Store) DeleteBook(ctx context.Context, id int64) (bool, error) {
	n, err := s.RunStatement(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, foreignKeyError("book %d is referenced by loan records", id)
		}
		return false, err
	}
	return n > 0, nil
}
