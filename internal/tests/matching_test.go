package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"swift/internal/domain"
	"swift/internal/repository"
	"swift/internal/service"
)

// ──────────────────────────────────────────────
// 4. ACCEPTANCE AND FARE SPLIT
// ──────────────────────────────────────────────

func TestAccept_ITParkSplitsFare(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture(Passenger("Maria"), Driver("Juan", "GAB-1234"))

	created, _ := f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "IT Park"})

	result, err := f.Registry.Accept(ctx, service.AcceptRequest{
		Driver:    "Juan",
		Passenger: "Maria",
		BookingID: created.BookingID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Booking.IsAccepted || result.Booking.DriverUsername != "Juan" || result.Booking.FinalFare != 95 {
		t.Errorf("unexpected booking after accept: %+v", result.Booking)
	}
	if result.Driver.WalletBalance != 76 {
		t.Errorf("expected wallet 76, got %v", result.Driver.WalletBalance)
	}

	r := result.Receipt
	if r.TotalFare != 95 || r.Commission != 19 || r.DriverEarnings != 76 {
		t.Errorf("unexpected split: total=%v commission=%v earnings=%v", r.TotalFare, r.Commission, r.DriverEarnings)
	}
	if r.PlateNumber != "GAB-1234" || r.PassengerName != "Maria" || r.TransactionID == "" {
		t.Errorf("unexpected receipt fields: %+v", r)
	}

	if f.Receipts.Count() != 1 {
		t.Errorf("expected 1 receipt appended, got %d", f.Receipts.Count())
	}
	if stored := f.Accounts.Stored("juan"); stored == nil || stored.WalletBalance != 76 {
		t.Errorf("expected persisted wallet 76, got %+v", stored)
	}
	if f.Cache.InvalidateCallCount != 1 {
		t.Errorf("expected report cache invalidated once, got %d", f.Cache.InvalidateCallCount)
	}
}

func TestAccept_SurgeAppliedToLahug(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture(Passenger("Maria"), Driver("Juan", "GAB-1234"))

	if err := f.Fares.SetSurge(1.5); err != nil {
		t.Fatalf("set surge: %v", err)
	}
	_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "Lahug"})

	result, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Juan", Passenger: "Maria"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Booking.FinalFare != 150 {
		t.Errorf("expected fare 150, got %v", result.Booking.FinalFare)
	}
	if result.Receipt.Commission != 30 || result.Receipt.DriverEarnings != 120 {
		t.Errorf("expected 30/120 split, got %v/%v", result.Receipt.Commission, result.Receipt.DriverEarnings)
	}
	if result.Driver.WalletBalance != 120 {
		t.Errorf("expected wallet 120, got %v", result.Driver.WalletBalance)
	}
}

func TestAccept_FareFrozenAgainstLaterSurge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture(Passenger("Maria"), Driver("Juan", "GAB-1234"))

	_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "IT Park"})
	if _, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Juan", Passenger: "Maria"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_ = f.Fares.SetSurge(2.0)

	completed, err := f.Registry.Complete(ctx, "Juan")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.FinalFare != 95 {
		t.Errorf("expected frozen fare 95, got %v", completed.FinalFare)
	}
}

func TestAccept_ConcurrentDriversSingleWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const drivers = 10
	accounts := []*domain.Account{Passenger("Maria")}
	for i := 0; i < drivers; i++ {
		accounts = append(accounts, Driver(fmt.Sprintf("driver-%d", i), fmt.Sprintf("PLT-%d", i)))
	}
	f := NewFixture(accounts...)

	_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "IT Park"})

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			<-start
			_, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: name, Passenger: "Maria"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, service.ErrAlreadyAccepted):
				rejected++
			default:
				t.Errorf("unexpected error for %s: %v", name, err)
			}
		}(fmt.Sprintf("driver-%d", i))
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly 1 winner, got %d", successes)
	}
	if rejected != drivers-1 {
		t.Errorf("expected %d ErrAlreadyAccepted, got %d", drivers-1, rejected)
	}
	if f.Receipts.Count() != 1 {
		t.Errorf("expected 1 receipt, got %d", f.Receipts.Count())
	}

	credited := 0
	for _, d := range f.AccountSvc.ListDrivers(ctx) {
		if d.WalletBalance > 0 {
			credited++
		}
	}
	if credited != 1 {
		t.Errorf("expected exactly one wallet credited, got %d", credited)
	}
}

func TestAccept_BusyDriverCannotTakeSecondJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture(Passenger("A"), Passenger("B"), Driver("Juan", "GAB-1234"))

	_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "A", Destination: "Lahug"})
	second, _ := f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "B", Destination: "Colon"})

	if _, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Juan", Passenger: "A"}); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	_, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "juan", Passenger: "B"})
	if !errors.Is(err, service.ErrDriverBusy) {
		t.Errorf("expected ErrDriverBusy, got %v", err)
	}

	current, _ := f.Registry.Current(ctx, "B")
	if current.BookingID != second.BookingID || current.IsAccepted {
		t.Errorf("second booking must stay open, got %+v", current)
	}
}

func TestAccept_StaleBookingIDRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture(Passenger("Maria"), Driver("Juan", "GAB-1234"))

	stale, _ := f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "Lahug"})
	_, _ = f.Registry.Cancel(ctx, "Maria")
	_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "Colon"})

	_, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Juan", Passenger: "Maria", BookingID: stale.BookingID})
	if !errors.Is(err, service.ErrBookingNotFound) {
		t.Errorf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestAccept_MissingBookingRejected(t *testing.T) {
	t.Parallel()
	f := NewFixture(Driver("Juan", "GAB-1234"))

	_, err := f.Registry.Accept(context.Background(), service.AcceptRequest{Driver: "Juan", Passenger: "Ghost"})
	if !errors.Is(err, service.ErrBookingNotFound) {
		t.Errorf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestAccept_RequiresDriverAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture(Passenger("Maria"), Passenger("Ana"))

	_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "Lahug"})

	if _, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Nobody", Passenger: "Maria"}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Ana", Passenger: "Maria"}); !errors.Is(err, service.ErrNotADriver) {
		t.Errorf("expected ErrNotADriver, got %v", err)
	}
}

func TestAccept_ReceiptFailureDoesNotUndoAcceptance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture(Passenger("Maria"), Driver("Juan", "GAB-1234"))
	f.Receipts.AppendError = errors.New("disk full")

	_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "IT Park"})

	result, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Juan", Passenger: "Maria"})
	if err != nil {
		t.Fatalf("persistence failures must not fail acceptance: %v", err)
	}
	if result.Receipt == nil || result.Receipt.DriverEarnings != 76 {
		t.Errorf("expected in-memory receipt, got %+v", result.Receipt)
	}
	if !f.Registry.IsBusy(ctx, "Juan") {
		t.Error("driver should be busy after acceptance")
	}
}

func TestAccept_LedgerFailureKeepsInMemoryCredit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture(Passenger("Maria"), Driver("Juan", "GAB-1234"))
	f.Accounts.RewriteError = errors.New("read-only filesystem")

	_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "IT Park"})

	result, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Juan", Passenger: "Maria"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Driver.WalletBalance != 76 {
		t.Errorf("expected in-memory wallet 76, got %v", result.Driver.WalletBalance)
	}

	juan, _ := f.AccountSvc.GetDriver(ctx, "Juan")
	if juan.WalletBalance != 76 {
		t.Errorf("expected account service wallet 76, got %v", juan.WalletBalance)
	}
}

func TestRemoveDriver_OnTripRefused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture(Passenger("Maria"), Driver("Juan", "GAB-1234"))

	_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "IT Park"})
	if _, err := f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Juan", Passenger: "Maria"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := f.Registry.RemoveDriver(ctx, "juan"); !errors.Is(err, service.ErrDriverBusy) {
		t.Errorf("expected ErrDriverBusy, got %v", err)
	}
	if f.Accounts.Stored("Juan") == nil {
		t.Error("busy driver removed from ledger")
	}

	if _, err := f.Registry.Complete(ctx, "Juan"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := f.Registry.RemoveDriver(ctx, "Juan"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Accounts.Stored("Juan") != nil {
		t.Error("driver still in ledger")
	}
}

func TestRemoveDriver_RacingAcceptNeverOrphansTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		f := NewFixture(Passenger("Maria"), Driver("Juan", "GAB-1234"))
		_, _ = f.Registry.Request(ctx, service.RequestTripRequest{Passenger: "Maria", Destination: "Lahug"})

		var (
			wg        sync.WaitGroup
			start     = make(chan struct{})
			acceptErr error
			removeErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, acceptErr = f.Registry.Accept(ctx, service.AcceptRequest{Driver: "Juan", Passenger: "Maria"})
		}()
		go func() {
			defer wg.Done()
			<-start
			removeErr = f.Registry.RemoveDriver(ctx, "Juan")
		}()
		close(start)
		wg.Wait()

		switch {
		case acceptErr == nil:
			if !errors.Is(removeErr, service.ErrDriverBusy) {
				t.Fatalf("run %d: accepted trip but remove returned %v", i, removeErr)
			}
			if f.Accounts.Stored("Juan") == nil {
				t.Fatalf("run %d: driver with active trip was removed", i)
			}
		case removeErr == nil:
			if !errors.Is(acceptErr, repository.ErrNotFound) {
				t.Fatalf("run %d: removed driver but accept returned %v", i, acceptErr)
			}
			if f.Registry.IsBusy(ctx, "Juan") {
				t.Fatalf("run %d: removed driver holds a trip", i)
			}
		default:
			t.Fatalf("run %d: both failed: accept=%v remove=%v", i, acceptErr, removeErr)
		}
	}
}
