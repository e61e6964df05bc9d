package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"library-system/library"
)

// The CLI is a thin consumer of the library core: it parses arguments,
// formats records, and maps typed errors to messages. All database work goes
// through the Store's entity operations.

var (
	dbPath  string
	verbose bool
	store   *library.Store
)

// slogLogger adapts log/slog to the core's Logger interface.
type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func defaultDBPath() string {
	if p := os.Getenv("LIBRARY_DB"); p != "" {
		return p
	}
	return "library.db"
}

func openStore(*cobra.Command, []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s, err := library.Open(dbPath, library.WithLogger(slogLogger{l: logger}))
	if err != nil {
		return err
	}
	store = s
	return nil
}

func closeStore(*cobra.Command, []string) {
	if store != nil {
		store.Close()
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "library",
		Short:             "Manage a small lending library",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: openStore,
		PersistentPostRun: closeStore,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "path to the SQLite database file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log SQL statements and timings")

	root.AddCommand(
		newAddBookCmd(), newListBooksCmd(), newSearchCmd(), newUpdateBookCmd(), newDeleteBookCmd(),
		newAddMemberCmd(), newListMembersCmd(),
		newBorrowCmd(), newReturnCmd(), newLoansCmd(), newOverdueCmd(),
	)
	return root
}

func newAddBookCmd() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "add-book TITLE AUTHOR ISBN",
		Short: "Add a book to the collection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var yearPtr *int
			if cmd.Flags().Changed("year") {
				yearPtr = &year
			}
			id, err := store.CreateBook(cmd.Context(), args[0], args[1], args[2], yearPtr)
			if err != nil {
				return err
			}
			fmt.Printf("Added book %d: %s by %s\n", id, args[0], args[1])
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "publication year")
	return cmd
}

func newListBooksCmd() *cobra.Command {
	var availableOnly bool
	cmd := &cobra.Command{
		Use:   "list-books",
		Short: "List books, ordered by title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := store.ListBooks(cmd.Context(), availableOnly)
			if err != nil {
				return err
			}
			printBooks(books)
			return nil
		},
	}
	cmd.Flags().BoolVar(&availableOnly, "available", false, "only books currently available")
	return cmd
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM",
		Short: "Search books by title or author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := store.SearchBooks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Println("No books matched.")
				return nil
			}
			printBooks(books)
			return nil
		},
	}
}

func newUpdateBookCmd() *cobra.Command {
	var title, author, isbn string
	var year int
	cmd := &cobra.Command{
		Use:   "update-book ID",
		Short: "Update fields of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			changes := map[string]any{}
			if cmd.Flags().Changed("title") {
				changes["title"] = title
			}
			if cmd.Flags().Changed("author") {
				changes["author"] = author
			}
			if cmd.Flags().Changed("isbn") {
				changes["isbn"] = isbn
			}
			if cmd.Flags().Changed("year") {
				changes["published_year"] = year
			}
			applied, err := store.UpdateBook(cmd.Context(), id, changes)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Printf("Book %d not found.\n", id)
				return nil
			}
			fmt.Printf("Book %d updated.\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&author, "author", "", "new author")
	cmd.Flags().StringVar(&isbn, "isbn", "", "new ISBN")
	cmd.Flags().IntVar(&year, "year", 0, "new publication year")
	return cmd
}

func newDeleteBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-book ID",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			applied, err := store.DeleteBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Printf("Book %d not found.\n", id)
				return nil
			}
			fmt.Printf("Book %d deleted.\n", id)
			return nil
		},
	}
}

func newAddMemberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-member NAME EMAIL",
		Short: "Register a library member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := store.CreateMember(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Added member %d: %s <%s>\n", id, args[0], args[1])
			return nil
		},
	}
}

func newListMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-members",
		Short: "List members, ordered by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			members, err := store.ListMembers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%-5s %-25s %-30s %s\n", "ID", "Name", "Email", "Joined")
			for _, m := range members {
				fmt.Printf("%-5d %-25s %-30s %s\n", m.ID, m.Name, m.Email, m.JoinDate.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newBorrowCmd() *cobra.Command {
	var due string
	cmd := &cobra.Command{
		Use:   "borrow BOOK_ID MEMBER_ID",
		Short: "Check a book out to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			memberID, err := parseID(args[1])
			if err != nil {
				return err
			}
			dueDate, err := time.Parse("2006-01-02", due)
			if err != nil {
				return fmt.Errorf("invalid --due date %q, want YYYY-MM-DD", due)
			}
			loanID, err := store.Borrow(cmd.Context(), bookID, memberID, dueDate)
			if err != nil {
				return err
			}
			fmt.Printf("Loan %d created, due %s.\n", loanID, due)
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD (required)")
	cmd.MarkFlagRequired("due")
	return cmd
}

func newReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return LOAN_ID",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := store.ReturnBook(cmd.Context(), loanID); err != nil {
				return err
			}
			fmt.Printf("Loan %d closed.\n", loanID)
			return nil
		},
	}
}

func newLoansCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "loans MEMBER_ID",
		Short: "Show a member's loans, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := parseID(args[0])
			if err != nil {
				return err
			}
			loans, err := store.LoansByMember(cmd.Context(), memberID, activeOnly)
			if err != nil {
				return err
			}
			fmt.Printf("%-5s %-35s %-12s %-12s %s\n", "ID", "Book", "Loaned", "Due", "Returned")
			for _, l := range loans {
				returned := "-"
				if l.ReturnDate != nil {
					returned = l.ReturnDate.Format("2006-01-02")
				}
				fmt.Printf("%-5d %-35s %-12s %-12s %s\n",
					l.ID, l.BookTitle,
					l.LoanDate.Format("2006-01-02"), l.DueDate.Format("2006-01-02"), returned)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only loans not yet returned")
	return cmd
}

func newOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "Show open loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loans, err := store.OverdueLoans(cmd.Context())
			if err != nil {
				return err
			}
			if len(loans) == 0 {
				fmt.Println("Nothing is overdue.")
				return nil
			}
			fmt.Printf("%-5s %-35s %-25s %s\n", "ID", "Book", "Member", "Due")
			for _, l := range loans {
				fmt.Printf("%-5d %-35s %-25s %s\n",
					l.ID, l.BookTitle, l.MemberName, l.DueDate.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func printBooks(books []library.Book) {
	fmt.Printf("%-5s %-35s %-25s %-15s %-6s %s\n", "ID", "Title", "Author", "ISBN", "Year", "Available")
	for _, b := range books {
		year := "-"
		if b.PublishedYear != nil {
			year = strconv.Itoa(*b.PublishedYear)
		}
		fmt.Printf("%-5d %-35s %-25s %-15s %-6s %t\n", b.ID, b.Title, b.Author, b.ISBN, year, b.Available)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// friendlyMessage turns the core's typed errors into user-facing text.
func friendlyMessage(err error) string {
	var libErr *library.Error
	if !errors.As(err, &libErr) {
		return err.Error()
	}
	switch {
	case errors.Is(err, library.ErrValidation):
		return "invalid input: " + libErr.Error()
	case errors.Is(err, library.ErrNotFound),
		errors.Is(err, library.ErrDuplicate),
		errors.Is(err, library.ErrNotAvailable),
		errors.Is(err, library.ErrAlreadyReturned):
		return libErr.Msg
	case errors.Is(err, library.ErrForeignKey):
		return libErr.Msg + " (delete or correct the related loans first)"
	default:
		return "storage failure: " + libErr.Error()
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", friendlyMessage(err))
		os.Exit(1)
	}
}
