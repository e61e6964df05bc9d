package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	year := 1965
	id, err := s.CreateBook(ctx, "Dune", "Frank Herbert", "9780441013593", &year)
	require.NoError(t, err)
	require.Positive(t, id)

	b, err := s.GetBook(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, id, b.ID)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Frank Herbert", b.Author)
	assert.Equal(t, "9780441013593", b.ISBN)
	require.NotNil(t, b.PublishedYear)
	assert.Equal(t, 1965, *b.PublishedYear)
	assert.True(t, b.Available)
	assert.False(t, b.CreatedAt.IsZero())
}

func TestCreateBookOptionalYear(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateBook(ctx, "Untitled Draft", "Anon", "9780000000002", nil)
	require.NoError(t, err)

	b, err := s.GetBook(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Nil(t, b.PublishedYear)
}

func TestCreateBookDuplicateISBN(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CreateBook(ctx, "Dune", "Frank Herbert", "9780441013593", nil)
	require.NoError(t, err)

	_, err = s.CreateBook(ctx, "Dune Reissue", "Frank Herbert", "9780441013593", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "9780441013593")

	assert.Equal(t, int64(1), countRows(t, s, "books"))
}

func TestCreateBookValidationPrecedesStorage(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cases := []struct {
		name          string
		title, author string
		isbn          string
		field         string
	}{
		{"empty title", "", "Author", "9780441013593", "title"},
		{"whitespace title", "   ", "Author", "9780441013593", "title"},
		{"empty author", "Title", "", "9780441013593", "author"},
		{"bad isbn", "Title", "Author", "123", "isbn"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateBook(ctx, tc.title, tc.author, tc.isbn, nil)
			requireFieldError(t, err, tc.field)
		})
	}

	// No rejected create ever reached storage.
	assert.Equal(t, int64(0), countRows(t, s, "books"))
}

func TestGetBookAbsent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Absence is a valid outcome, not an error, no matter how often asked.
	for i := 0; i < 3; i++ {
		b, err := s.GetBook(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, b)
	}
}

func TestGetBookByISBN(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateBook(ctx, "Dune", "Frank Herbert", "9780441013593", nil)
	require.NoError(t, err)

	b, err := s.GetBookByISBN(ctx, "9780441013593")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, id, b.ID)

	b, err = s.GetBookByISBN(ctx, "9999999999999")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestListBooksOrderedByTitle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Inserted out of order; listing must sort by title ascending.
	_, err := s.CreateBook(ctx, "Cherry Orchard", "Chekhov", "9780000000011", nil)
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, "Animal Farm", "Orwell", "9780000000012", nil)
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, "Brave New World", "Huxley", "9780000000013", nil)
	require.NoError(t, err)

	books, err := s.ListBooks(ctx, false)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Animal Farm", books[0].Title)
	assert.Equal(t, "Brave New World", books[1].Title)
	assert.Equal(t, "Cherry Orchard", books[2].Title)
}

func TestListBooksAvailableOnly(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	b1, err := s.CreateBook(ctx, "Out", "A", "9780000000021", nil)
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, "In", "B", "9780000000022", nil)
	require.NoError(t, err)
	m, err := s.CreateMember(ctx, "Ann", "ann@example.com")
	require.NoError(t, err)

	_, err = s.Borrow(ctx, b1, m, time.Now().AddDate(0, 0, 14))
	require.NoError(t, err)

	books, err := s.ListBooks(ctx, true)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "In", books[0].Title)

	all, err := s.ListBooks(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSearchBooks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CreateBook(ctx, "Python Crash Course", "Eric Matthes", "9780000000031", nil)
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, "Learning Python", "Mark Lutz", "9780000000032", nil)
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, "The Go Programming Language", "Alan Donovan", "9780000000033", nil)
	require.NoError(t, err)

	// Case-insensitive partial match on title.
	books, err := s.SearchBooks(ctx, "python")
	require.NoError(t, err)
	require.Len(t, books, 2)
	// Ordered by title ascending.
	assert.Equal(t, "Learning Python", books[0].Title)
	assert.Equal(t, "Python Crash Course", books[1].Title)

	// Match on author too.
	books, err = s.SearchBooks(ctx, "donovan")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Go Programming Language", books[0].Title)

	// No match is an empty result, not an error.
	books, err = s.SearchBooks(ctx, "cobol")
	require.NoError(t, err)
	assert.Empty(t, books)

	// Blank terms match nothing.
	books, err = s.SearchBooks(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestUpdateBookPartial(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	year := 1949
	id, err := s.CreateBook(ctx, "1984", "George Orwel", "9780451524935", &year)
	require.NoError(t, err)

	applied, err := s.UpdateBook(ctx, id, map[string]any{"author": "George Orwell"})
	require.NoError(t, err)
	assert.True(t, applied)

	b, err := s.GetBook(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "George Orwell", b.Author)
	// Untouched fields stay put.
	assert.Equal(t, "1984", b.Title)
	require.NotNil(t, b.PublishedYear)
	assert.Equal(t, 1949, *b.PublishedYear)
}

func TestUpdateBookAbsent(t *testing.T) {
	s := testStore(t)

	applied, err := s.UpdateBook(context.Background(), 9999, map[string]any{"title": "Ghost"})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestUpdateBookRejectsAvailable(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateBook(ctx, "Dune", "Frank Herbert", "9780441013593", nil)
	require.NoError(t, err)

	// available belongs to the loan state machine.
	_, err = s.UpdateBook(ctx, id, map[string]any{"available": false})
	requireFieldError(t, err, "available")

	b, err := s.GetBook(ctx, id)
	require.NoError(t, err)
	assert.True(t, b.Available)
}

func TestUpdateBookRejectsUnknownAndEmpty(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateBook(ctx, "Dune", "Frank Herbert", "9780441013593", nil)
	require.NoError(t, err)

	_, err = s.UpdateBook(ctx, id, map[string]any{"created_at": "2001-01-01"})
	requireFieldError(t, err, "created_at")

	_, err = s.UpdateBook(ctx, id, map[string]any{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = s.UpdateBook(ctx, id, map[string]any{"title": ""})
	requireFieldError(t, err, "title")
}

func TestUpdateBookDuplicateISBN(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CreateBook(ctx, "First", "A", "9780000000041", nil)
	require.NoError(t, err)
	second, err := s.CreateBook(ctx, "Second", "B", "9780000000042", nil)
	require.NoError(t, err)

	_, err = s.UpdateBook(ctx, second, map[string]any{"isbn": "9780000000041"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdateBookClearYear(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	year := 1965
	id, err := s.CreateBook(ctx, "Dune", "Frank Herbert", "9780441013593", &year)
	require.NoError(t, err)

	applied, err := s.UpdateBook(ctx, id, map[string]any{"published_year": nil})
	require.NoError(t, err)
	assert.True(t, applied)

	b, err := s.GetBook(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, b.PublishedYear)
}

func TestDeleteBook(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateBook(ctx, "Dune", "Frank Herbert", "9780441013593", nil)
	require.NoError(t, err)

	applied, err := s.DeleteBook(ctx, id)
	require.NoError(t, err)
	assert.True(t, applied)

	b, err := s.GetBook(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, b)

	// Deleting again reports no row removed.
	applied, err = s.DeleteBook(ctx, id)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestDeleteBookRestrictedByLoans(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	bookID, err := s.CreateBook(ctx, "Dune", "Frank Herbert", "9780441013593", nil)
	require.NoError(t, err)
	memberID, err := s.CreateMember(ctx, "Ann", "ann@example.com")
	require.NoError(t, err)
	loanID, err := s.Borrow(ctx, bookID, memberID, time.Now().AddDate(0, 0, 14))
	require.NoError(t, err)

	_, err = s.DeleteBook(ctx, bookID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForeignKey)

	// Even a closed loan keeps the reference alive.
	require.NoError(t, s.ReturnBook(ctx, loanID))
	_, err = s.DeleteBook(ctx, bookID)
	assert.ErrorIs(t, err, ErrForeignKey)
}
