package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
)

// memberUpdatableFields lists what UpdateMember accepts; join_date is set at
// creation and immutable afterwards.
var memberUpdatableFields = []string{"name", "email"}

// CreateMember validates and inserts a new member, returning its identity.
// join_date is set to today and is not caller-settable.
func (s *Store) CreateMember(ctx context.Context, name, email string) (int64, error) {
	if err := ValidateNotEmpty(name, "name"); err != nil {
		return 0, err
	}
	if err := ValidateEmail(email); err != nil {
		return 0, err
	}

	id, err := s.insertRow(ctx,
		`INSERT INTO members (name, email, join_date) VALUES (?, ?, ?)`,
		name, email, dateOnly(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, duplicateError("a member with email %q already exists", email)
		}
		return 0, err
	}
	return id, nil
}

// GetMember returns the member with the given id, or (nil, nil) when no such
// member exists.
func (s *Store) GetMember(ctx context.Context, id int64) (*Member, error) {
	var m Member
	found, err := s.getRow(ctx, &m, `SELECT * FROM members WHERE id = ?`, id)
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}

// GetMemberByEmail looks a member up by their unique email, or (nil, nil)
// when no such member exists.
func (s *Store) GetMemberByEmail(ctx context.Context, email string) (*Member, error) {
	var m Member
	found, err := s.getRow(ctx, &m, `SELECT * FROM members WHERE email = ?`, email)
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns all members ordered by name ascending.
func (s *Store) ListMembers(ctx context.Context) ([]Member, error) {
	members := make([]Member, 0)
	if err := s.selectRows(ctx, &members, `SELECT * FROM members ORDER BY name`); err != nil {
		return nil, err
	}
	return members, nil
}

// UpdateMember applies the given field changes to one member and reports
// whether a row was affected. Only name and email may be changed.
func (s *Store) UpdateMember(ctx context.Context, id int64, changes map[string]any) (bool, error) {
	if len(changes) == 0 {
		return false, validationError("changes", "no fields provided to update")
	}

	rec := goqu.Record{}
	for field, value := range changes {
		str, ok := value.(string)
		if !ok {
			return false, validationError(field, "must be a string")
		}
		switch field {
		case "name":
			if err := ValidateNotEmpty(str, "name"); err != nil {
				return false, err
			}
		case "email":
			if err := ValidateEmail(str); err != nil {
				return false, err
			}
		default:
			return false, validationError(field,
				fmt.Sprintf("cannot be updated; allowed fields: %s", strings.Join(memberUpdatableFields, ", ")))
		}
		rec[field] = str
	}

	query, args, err := dialect.Update("members").
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return false, executionError("build member update", err)
	}

	n, err := s.RunStatement(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, duplicateError("another member already has this email")
		}
		return false, err
	}
	return n > 0, nil
}

// DeleteMember removes one member and reports whether a row was removed. A
// member with loan records cannot be deleted.
func (s *Store) DeleteMember(ctx context.Context, id int64) (bool, error) {
	n, err := s.RunStatement(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, foreignKeyError("member %d has loan records", id)
		}
		return false, err
	}
	return n > 0, nil
}
