package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"library-system/library"
)

// Seeds a fresh database with sample books, members, and a mix of open,
// closed, and overdue loans. Everything goes through the core's entity
// operations; no raw SQL is issued here.

type sampleBook struct {
	title  string
	author string
	isbn   string
	year   int
}

var sampleBooks = []sampleBook{
	{"Python Crash Course", "Eric Matthes", "9781593279288", 2019},
	{"Automate the Boring Stuff", "Al Sweigart", "9781593275990", 2015},
	{"Clean Code", "Robert C. Martin", "9780132350884", 2008},
	{"The Pragmatic Programmer", "David Thomas", "9780135957059", 2019},
	{"Design Patterns", "Erich Gamma", "9780201633610", 1994},
	{"Dune", "Frank Herbert", "9780441013593", 1965},
	{"1984", "George Orwell", "9780451524935", 1949},
	{"The Hobbit", "J.R.R. Tolkien", "9780547928227", 1937},
}

var sampleMembers = []struct{ name, email string }{
	{"Alice Johnson", "alice@example.com"},
	{"Bob Smith", "bob@example.com"},
	{"Carol Williams", "carol@example.com"},
	{"David Brown", "david@example.com"},
}

func main() {
	const dbFile = "library.db"

	// Start from a clean slate, WAL sidecars included.
	for _, f := range []string{dbFile, dbFile + "-shm", dbFile + "-wal"} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: could not remove %s: %v\n", f, err)
		}
	}

	store, err := library.Open(dbFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	fmt.Println("Seeding books...")
	bookIDs := make([]int64, 0, len(sampleBooks))
	for _, b := range sampleBooks {
		year := b.year
		id, err := store.CreateBook(ctx, b.title, b.author, b.isbn, &year)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating book %q: %v\n", b.title, err)
			os.Exit(1)
		}
		fmt.Printf("  %d: %s by %s\n", id, b.title, b.author)
		bookIDs = append(bookIDs, id)
	}

	fmt.Println("Seeding members...")
	memberIDs := make([]int64, 0, len(sampleMembers))
	for _, m := range sampleMembers {
		id, err := store.CreateMember(ctx, m.name, m.email)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating member %q: %v\n", m.name, err)
			os.Exit(1)
		}
		fmt.Printf("  %d: %s <%s>\n", id, m.name, m.email)
		memberIDs = append(memberIDs, id)
	}

	fmt.Println("Seeding loans...")
	today := time.Now()

	// A completed loan: borrowed and already returned.
	closedLoan, err := store.Borrow(ctx, bookIDs[0], memberIDs[0], today.AddDate(0, 0, 14))
	if err == nil {
		err = store.ReturnBook(ctx, closedLoan)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding closed loan: %v\n", err)
		os.Exit(1)
	}

	// Open loans with a healthy due date.
	openLoans := 0
	for i, bookIdx := range []int{1, 2, 3} {
		if _, err := store.Borrow(ctx, bookIDs[bookIdx], memberIDs[i%len(memberIDs)], today.AddDate(0, 0, 14)); err != nil {
			fmt.Fprintf(os.Stderr, "Error seeding open loan: %v\n", err)
			os.Exit(1)
		}
		openLoans++
	}

	// An overdue loan: due date in the past and still open.
	if _, err := store.Borrow(ctx, bookIDs[4], memberIDs[3], today.AddDate(0, 0, -7)); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding overdue loan: %v\n", err)
		os.Exit(1)
	}
	openLoans++

	fmt.Println("\nSeed complete!")
	fmt.Printf("  Books:   %d\n", len(bookIDs))
	fmt.Printf("  Members: %d\n", len(memberIDs))
	fmt.Printf("  Loans:   %d open, 1 closed\n", openLoans)

	overdue, err := store.OverdueLoans(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing overdue loans: %v\n", err)
		os.Exit(1)
	}
	if len(overdue) > 0 {
		fmt.Println("\nOverdue:")
		for _, l := range overdue {
			fmt.Printf("  %s (%s), due %s\n", l.BookTitle, l.MemberName, l.DueDate.Format("2006-01-02"))
		}
	}
}
