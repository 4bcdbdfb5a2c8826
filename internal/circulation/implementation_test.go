// internal/circulation/implementation_test.go
package circulation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblio/internal/borrower"
	"biblio/internal/catalog"
	"biblio/internal/storage"
)

// fakeStore satisfies Store without a database: the transaction body runs
// directly and its error is the transaction outcome.
type fakeStore struct{}

func (fakeStore) Querier() storage.Querier { return nil }

func (fakeStore) InTx(ctx context.Context, op string, fn func(context.Context, storage.Querier) error) error {
	return fn(ctx, nil)
}

type fakeCatalog struct {
	mu    sync.Mutex
	books map[string]*catalog.Book
}

func (f *fakeCatalog) Get(_ context.Context, _ storage.Querier, isbn string) (*catalog.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[isbn]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeCatalog) Search(_ context.Context, _ storage.Querier, query string, by catalog.SearchBy) ([]catalog.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Book
	if by == catalog.SearchByISBN {
		if b, ok := f.books[query]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ReserveCopy(_ context.Context, _ storage.Querier, isbn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[isbn]
	if !ok {
		return catalog.ErrNotFound
	}
	if b.AvailableCopies == 0 {
		return catalog.ErrNoCopies
	}
	b.AvailableCopies--
	return nil
}

func (f *fakeCatalog) ReleaseCopy(_ context.Context, _ storage.Querier, isbn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[isbn]
	if !ok || b.AvailableCopies >= b.TotalCopies {
		return catalog.ErrCopyConflict
	}
	b.AvailableCopies++
	return nil
}

func (f *fakeCatalog) available(isbn string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.books[isbn].AvailableCopies
}

type fakeBorrowers struct {
	mu      sync.Mutex
	holders map[string]*borrower.Borrower
}

func (f *fakeBorrowers) Get(_ context.Context, _ storage.Querier, cardID string) (*borrower.Borrower, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holders[cardID]
	if !ok {
		return nil, borrower.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (f *fakeBorrowers) AddFine(_ context.Context, _ storage.Querier, cardID string, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holders[cardID]
	if !ok {
		return borrower.ErrNotFound
	}
	h.FineBalance += amount
	return nil
}

func (f *fakeBorrowers) DeductFine(_ context.Context, _ storage.Querier, cardID string, amount float64) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holders[cardID]
	if !ok || h.FineBalance < amount {
		return 0, false, nil
	}
	h.FineBalance -= amount
	return h.FineBalance, true, nil
}

func (f *fakeBorrowers) balance(cardID string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holders[cardID].FineBalance
}

type fakeLoans struct {
	mu    sync.Mutex
	loans map[uuid.UUID]*Loan
}

func (f *fakeLoans) Insert(_ context.Context, _ storage.Querier, loan *Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *loan
	f.loans[loan.ID] = &cp
	return nil
}

func (f *fakeLoans) Get(_ context.Context, _ storage.Querier, id uuid.UUID) (*Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	cp := *l
	tagStatus(&cp)
	return &cp, nil
}

func (f *fakeLoans) CountOpen(_ context.Context, _ storage.Querier, cardID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.loans {
		if l.CardID == cardID && l.ReturnDate == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeLoans) MarkReturned(_ context.Context, _ storage.Querier, id uuid.UUID, returnedAt time.Time, fine float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.loans[id]
	if !ok || l.ReturnDate != nil {
		return false, nil
	}
	l.ReturnDate = &returnedAt
	l.FineAmount = &fine
	return true, nil
}

func (f *fakeLoans) ListByCard(_ context.Context, _ storage.Querier, cardID string) ([]Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Loan
	for _, l := range f.loans {
		if l.CardID == cardID {
			cp := *l
			tagStatus(&cp)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckoutDate.Equal(out[j].CheckoutDate) {
			return out[i].CheckoutDate.After(out[j].CheckoutDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

type fixture struct {
	svc       *service
	books     *fakeCatalog
	borrowers *fakeBorrowers
	loans     *fakeLoans
	clock     time.Time
}

func newFixture() *fixture {
	fx := &fixture{
		books:     &fakeCatalog{books: make(map[string]*catalog.Book)},
		borrowers: &fakeBorrowers{holders: make(map[string]*borrower.Borrower)},
		loans:     &fakeLoans{loans: make(map[uuid.UUID]*Loan)},
		clock:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	fx.svc = &service{
		store:     fakeStore{},
		books:     fx.books,
		borrowers: fx.borrowers,
		loans:     fx.loans,
		policy: Policy{
			LoanPeriodDays: 14,
			DailyFineRate:  0.25,
			MaxOpenLoans:   3,
			FineThreshold:  0,
		},
		now: func() time.Time { return fx.clock },
	}
	return fx
}

func (fx *fixture) addBook(isbn string, copies int) {
	fx.books.books[isbn] = &catalog.Book{ISBN: isbn, Title: "T " + isbn, TotalCopies: copies, AvailableCopies: copies}
}

func (fx *fixture) addBorrower(cardID string, fine float64) {
	fx.borrowers.holders[cardID] = &borrower.Borrower{CardID: cardID, Name: "N " + cardID, FineBalance: fine}
}

func (fx *fixture) advanceDays(d int) {
	fx.clock = fx.clock.AddDate(0, 0, d)
}

func TestCheckoutReturnRoundTrip(t *testing.T) {
	fx := newFixture()
	fx.addBook("9780141439518", 1)
	fx.addBorrower("10001234", 0)

	loan, err := fx.svc.Checkout(context.Background(), "10001234", "978-0-14-143951-8")
	require.NoError(t, err)
	assert.Equal(t, "9780141439518", loan.ISBN, "isbn is canonicalized")
	assert.Equal(t, StatusActive, loan.Status)
	assert.Equal(t, fx.clock.AddDate(0, 0, 14), loan.DueDate)
	assert.Equal(t, 0, fx.books.available("9780141439518"))

	returned, err := fx.svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, returned.Status)
	require.NotNil(t, returned.FineAmount)
	assert.Equal(t, 0.0, *returned.FineAmount)
	assert.Equal(t, 1, fx.books.available("9780141439518"))
	assert.Equal(t, 0.0, fx.borrowers.balance("10001234"))
}

func TestReturnLateAccruesFine(t *testing.T) {
	fx := newFixture()
	fx.addBook("9780141439518", 1)
	fx.addBorrower("10001234", 0)

	loan, err := fx.svc.Checkout(context.Background(), "10001234", "9780141439518")
	require.NoError(t, err)

	// Due after 14 days, returned on day 20: six days overdue at 0.25/day.
	fx.advanceDays(20)
	returned, err := fx.svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	require.NotNil(t, returned.FineAmount)
	assert.Equal(t, 1.5, *returned.FineAmount)
	assert.Equal(t, 1.5, fx.borrowers.balance("10001234"))
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, fx.clock, *returned.ReturnDate)
}

func TestCheckoutUnknownBorrower(t *testing.T) {
	fx := newFixture()
	fx.addBook("9780141439518", 1)

	_, err := fx.svc.Checkout(context.Background(), "99999999", "9780141439518")
	assert.ErrorIs(t, err, borrower.ErrNotFound)
}

func TestCheckoutInvalidISBN(t *testing.T) {
	fx := newFixture()
	fx.addBorrower("10001234", 0)

	_, err := fx.svc.Checkout(context.Background(), "10001234", "not-an-isbn")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCheckoutNoCopiesLeft(t *testing.T) {
	fx := newFixture()
	fx.addBook("9780141439518", 1)
	fx.addBorrower("10001234", 0)
	fx.addBorrower("10001235", 0)

	_, err := fx.svc.Checkout(context.Background(), "10001234", "9780141439518")
	require.NoError(t, err)

	_, err = fx.svc.Checkout(context.Background(), "10001235", "9780141439518")
	assert.ErrorIs(t, err, catalog.ErrNoCopies)
}

func TestCheckoutOpenLoanLimit(t *testing.T) {
	fx := newFixture()
	fx.addBorrower("10001234", 0)
	isbns := []string{"9780000000001", "9780000000002", "9780000000003", "9780000000004"}
	for _, isbn := range isbns {
		fx.addBook(isbn, 1)
	}

	var last *Loan
	for _, isbn := range isbns[:3] {
		loan, err := fx.svc.Checkout(context.Background(), "10001234", isbn)
		require.NoError(t, err)
		last = loan
	}

	_, err := fx.svc.Checkout(context.Background(), "10001234", isbns[3])
	assert.ErrorIs(t, err, ErrLoanLimitExceeded)

	// Returning one frees a slot.
	_, err = fx.svc.Return(context.Background(), last.ID)
	require.NoError(t, err)
	_, err = fx.svc.Checkout(context.Background(), "10001234", isbns[3])
	assert.NoError(t, err)
}

func TestCheckoutBlockedByOutstandingFines(t *testing.T) {
	fx := newFixture()
	fx.addBook("9780141439518", 1)
	fx.addBorrower("10001234", 0.25)

	_, err := fx.svc.Checkout(context.Background(), "10001234", "9780141439518")
	assert.ErrorIs(t, err, ErrFineThreshold)
	assert.Equal(t, 1, fx.books.available("9780141439518"), "no copy is reserved on a refused checkout")
}

func TestConcurrentCheckoutLastCopy(t *testing.T) {
	fx := newFixture()
	fx.addBook("9780141439518", 1)
	fx.addBorrower("10001234", 0)
	fx.addBorrower("10001235", 0)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, card := range []string{"10001234", "10001235"} {
		wg.Add(1)
		go func(card string) {
			defer wg.Done()
			_, err := fx.svc.Checkout(context.Background(), card, "9780141439518")
			errs <- err
		}(card)
	}
	wg.Wait()
	close(errs)

	var ok, noCopy int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, catalog.ErrNoCopies):
			noCopy++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, noCopy)
	assert.Equal(t, 0, fx.books.available("9780141439518"))
}

func TestReturnTwice(t *testing.T) {
	fx := newFixture()
	fx.addBook("9780141439518", 1)
	fx.addBorrower("10001234", 0)

	loan, err := fx.svc.Checkout(context.Background(), "10001234", "9780141439518")
	require.NoError(t, err)

	_, err = fx.svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	_, err = fx.svc.Return(context.Background(), loan.ID)
	assert.ErrorIs(t, err, ErrAlreadyReturned)
	assert.Equal(t, 1, fx.books.available("9780141439518"), "second return must not release another copy")
}

type releaseFailCatalog struct {
	*fakeCatalog
	releaseErr error
}

func (f *releaseFailCatalog) ReleaseCopy(context.Context, storage.Querier, string) error {
	return f.releaseErr
}

func TestReturnCopyConflictIsInventoryViolation(t *testing.T) {
	fx := newFixture()
	fx.addBook("9780141439518", 1)
	fx.addBorrower("10001234", 0)

	loan, err := fx.svc.Checkout(context.Background(), "10001234", "9780141439518")
	require.NoError(t, err)

	fx.svc.books = &releaseFailCatalog{fakeCatalog: fx.books, releaseErr: catalog.ErrCopyConflict}
	_, err = fx.svc.Return(context.Background(), loan.ID)
	assert.ErrorIs(t, err, ErrInventoryConsistency)
}

func TestReturnStoreFailurePropagates(t *testing.T) {
	fx := newFixture()
	fx.addBook("9780141439518", 1)
	fx.addBorrower("10001234", 0)

	loan, err := fx.svc.Checkout(context.Background(), "10001234", "9780141439518")
	require.NoError(t, err)

	cause := storage.WrapErr("catalog.release", errors.New("connection reset"))
	fx.svc.books = &releaseFailCatalog{fakeCatalog: fx.books, releaseErr: cause}
	_, err = fx.svc.Return(context.Background(), loan.ID)
	assert.ErrorIs(t, err, cause, "store failures keep their identity")
	assert.NotErrorIs(t, err, ErrInventoryConsistency)
}

func TestReturnUnknownLoan(t *testing.T) {
	fx := newFixture()
	_, err := fx.svc.Return(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestPayFine(t *testing.T) {
	fx := newFixture()
	fx.addBorrower("10001234", 1.5)

	balance, err := fx.svc.PayFine(context.Background(), "10001234", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, balance)

	balance, err = fx.svc.PayFine(context.Background(), "10001234", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
}

func TestPayFineRejectsOverpayment(t *testing.T) {
	fx := newFixture()
	fx.addBorrower("10001234", 1.5)

	_, err := fx.svc.PayFine(context.Background(), "10001234", 2.0)
	assert.ErrorIs(t, err, ErrInvalidPayment)
	assert.Equal(t, 1.5, fx.borrowers.balance("10001234"), "balance unchanged after a refused payment")
}

func TestPayFineRejectsNonPositiveAmounts(t *testing.T) {
	fx := newFixture()
	fx.addBorrower("10001234", 1.5)

	_, err := fx.svc.PayFine(context.Background(), "10001234", 0)
	assert.ErrorIs(t, err, ErrInvalidPayment)
	_, err = fx.svc.PayFine(context.Background(), "10001234", -1)
	assert.ErrorIs(t, err, ErrInvalidPayment)
}

func TestPayFineUnknownBorrower(t *testing.T) {
	fx := newFixture()
	_, err := fx.svc.PayFine(context.Background(), "99999999", 1)
	assert.ErrorIs(t, err, borrower.ErrNotFound)
}

func TestLoanHistoryMostRecentFirst(t *testing.T) {
	fx := newFixture()
	fx.addBorrower("10001234", 0)
	fx.addBook("9780000000001", 1)
	fx.addBook("9780000000002", 1)
	fx.addBook("9780000000003", 1)

	first, err := fx.svc.Checkout(context.Background(), "10001234", "9780000000001")
	require.NoError(t, err)
	fx.advanceDays(1)
	_, err = fx.svc.Return(context.Background(), first.ID)
	require.NoError(t, err)

	fx.advanceDays(1)
	_, err = fx.svc.Checkout(context.Background(), "10001234", "9780000000002")
	require.NoError(t, err)
	fx.advanceDays(1)
	_, err = fx.svc.Checkout(context.Background(), "10001234", "9780000000003")
	require.NoError(t, err)

	history, err := fx.svc.LoanHistory(context.Background(), "10001234")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "9780000000003", history[0].ISBN)
	assert.Equal(t, "9780000000002", history[1].ISBN)
	assert.Equal(t, "9780000000001", history[2].ISBN)
	assert.Equal(t, StatusReturned, history[2].Status)
	assert.Equal(t, StatusActive, history[0].Status)
}

func TestLoanHistoryUnknownBorrower(t *testing.T) {
	fx := newFixture()
	_, err := fx.svc.LoanHistory(context.Background(), "99999999")
	assert.ErrorIs(t, err, borrower.ErrNotFound)
}

func TestSearchInvalidISBNIsEmpty(t *testing.T) {
	fx := newFixture()
	books, err := fx.svc.Search(context.Background(), "zzz", catalog.SearchByISBN)
	require.NoError(t, err)
	assert.Empty(t, books)
}
