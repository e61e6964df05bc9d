package library

import "time"

// Book is one title in the collection. Available is owned by the loan state
// machine: Borrow flips it off, ReturnBook flips it back on, and UpdateBook
// refuses to touch it.
type Book struct {
	ID            int64     `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Author        string    `db:"author" json:"author"`
	ISBN          string    `db:"isbn" json:"isbn"`
	PublishedYear *int      `db:"published_year" json:"published_year,omitempty"`
	Available     bool      `db:"available" json:"available"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Member is a registered patron. JoinDate is set at creation and immutable.
type Member struct {
	ID       int64     `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	Email    string    `db:"email" json:"email"`
	JoinDate time.Time `db:"join_date" json:"join_date"`
}

// Loan records one borrowing of a book by a member. A nil ReturnDate means
// the loan is open (the book is out); ReturnBook sets it exactly once.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	MemberID   int64      `db:"member_id" json:"member_id"`
	LoanDate   time.Time  `db:"loan_date" json:"loan_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
}

// Open reports whether the book is still out on this loan.
func (l *Loan) Open() bool { return l.ReturnDate == nil }

// MemberLoan is a loan row joined with the book it refers to, as returned by
// LoansByMember.
type MemberLoan struct {
	Loan
	BookTitle  string `db:"book_title" json:"book_title"`
	BookAuthor string `db:"book_author" json:"book_author"`
	BookISBN   string `db:"book_isbn" json:"book_isbn"`
}

// OverdueLoan is an open loan past its due date, joined with book and member
// details for reporting.
type OverdueLoan struct {
	ID          int64     `db:"id" json:"id"`
	LoanDate    time.Time `db:"loan_date" json:"loan_date"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	BookTitle   string    `db:"book_title" json:"book_title"`
	BookAuthor  string    `db:"book_author" json:"book_author"`
	MemberName  string    `db:"member_name" json:"member_name"`
	MemberEmail string    `db:"member_email" json:"member_email"`
}
