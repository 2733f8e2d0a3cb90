package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mecanomotors/mecano/internal/lifecycle"
	"github.com/mecanomotors/mecano/internal/store"
)

var created = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func reservationDetails() lifecycle.Details {
	return lifecycle.Details{
		Kind:     lifecycle.KindReservation,
		OwnerID:  "client-1",
		TargetID: "mechanic-1",
		Items:    []lifecycle.LineItem{{Label: "Vidange", Quantity: 1, UnitPrice: 5000}},
		Notes:    "  Bruit au freinage  ",
		Reservation: &lifecycle.ReservationDetails{
			Service:           "Vidange",
			Date:              "2025-03-20",
			Time:              "10:00",
			Vehicle:           lifecycle.Vehicle{Make: "Toyota", Model: "Corolla", Year: 2015, Plate: "DK-1234-A"},
			EstimatedDuration: 60,
		},
	}
}

func orderDetails() lifecycle.Details {
	return lifecycle.Details{
		Kind:     lifecycle.KindOrder,
		OwnerID:  "client-1",
		TargetID: "vendor-1",
		Items: []lifecycle.LineItem{
			{RefID: "p1", Label: "Filtre à huile premium", Quantity: 2, UnitPrice: 7500},
			{RefID: "p2", Label: "Plaquettes de frein", Quantity: 1, UnitPrice: 18000},
		},
		Order: &lifecycle.OrderDetails{
			ShippingAddress: "Rue 10, Médina, Dakar",
			PaymentMethod:   "wave",
			TransactionID:   "wave_1741944600000",
		},
	}
}

func newRequest(t *testing.T, d lifecycle.Details) lifecycle.Request {
	t.Helper()
	r, err := lifecycle.New(d, "req-1", created)
	require.NoError(t, err)
	return r
}

func TestNewReservation(t *testing.T) {
	r := newRequest(t, reservationDetails())

	assert.Equal(t, "req-1", r.ID)
	assert.Equal(t, lifecycle.StatusPending, r.Status)
	assert.Equal(t, created, r.CreatedAt)
	assert.Equal(t, int64(5000), r.Total)
	assert.Equal(t, "Bruit au freinage", r.Notes)
	require.NotNil(t, r.Reservation)
	assert.Equal(t, lifecycle.ModeAppointment, r.Reservation.Mode)
	assert.Nil(t, r.Order)
}

func TestNewOrderComputesTotalAndTracking(t *testing.T) {
	r := newRequest(t, orderDetails())

	assert.Equal(t, int64(2*7500+18000), r.Total)
	require.NotNil(t, r.Order)
	assert.Equal(t, "MM1741944600000", r.Order.TrackingNumber)
	assert.Equal(t, created.Add(7*24*time.Hour), r.Order.EstimatedDelivery)
}

func TestNewRejectsInvalidDetails(t *testing.T) {
	d := reservationDetails()
	d.Reservation.Vehicle.Plate = ""
	d.Reservation.EstimatedDuration = 15
	d.Items = nil

	_, err := lifecycle.New(d, "req-1", created)

	var verr *lifecycle.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["reservation.vehicle.plate"])
	assert.Equal(t, "gte", verr.Fields["reservation.estimated_duration"])
	assert.Contains(t, verr.Fields, "items")
}

func TestNewRequiresKindDetails(t *testing.T) {
	d := orderDetails()
	d.Order = nil
	_, err := lifecycle.New(d, "req-1", created)

	var verr *lifecycle.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["order"])
}

func TestNewRejectsUnknownKind(t *testing.T) {
	d := orderDetails()
	d.Kind = "subscription"
	_, err := lifecycle.New(d, "req-1", created)

	var verr *lifecycle.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "oneof", verr.Fields["kind"])
}

func TestAdvanceOrderToDelivered(t *testing.T) {
	r := newRequest(t, orderDetails())
	want := []lifecycle.Status{lifecycle.StatusProcessing, lifecycle.StatusShipped, lifecycle.StatusDelivered}

	for _, s := range want {
		var err error
		r, err = lifecycle.Advance(r, created.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, s, r.Status)
	}

	_, err := lifecycle.Advance(r, created.Add(2*time.Hour))
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.True(t, lifecycle.IsTerminal(r.Kind, r.Status))
}

func TestAdvanceReservation(t *testing.T) {
	r := newRequest(t, reservationDetails())
	r, err := lifecycle.Advance(r, created)
	require.NoError(t, err)
	r, err = lifecycle.Advance(r, created)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCompleted, r.Status)

	_, err = lifecycle.Advance(r, created)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestCancelReservationTimeline(t *testing.T) {
	r := newRequest(t, reservationDetails())
	cancelledAt := created.Add(30 * time.Minute)

	r, err := lifecycle.Cancel(r, "client unavailable", cancelledAt)
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatusCancelled, r.Status)
	assert.Equal(t, "client unavailable", r.CancelReason)
	require.NotNil(t, r.CancelledAt)
	assert.Equal(t, cancelledAt, *r.CancelledAt)

	steps := lifecycle.Timeline(r)
	require.Len(t, steps, 1)
	assert.Equal(t, lifecycle.StatusPending, steps[0].Status)
	assert.True(t, steps[0].Completed)
	assert.Equal(t, created, steps[0].At)
}

func TestCancelRules(t *testing.T) {
	tests := []struct {
		name    string
		details lifecycle.Details
		steps   int
		wantErr bool
	}{
		{"reservation pending", reservationDetails(), 0, false},
		{"reservation confirmed", reservationDetails(), 1, false},
		{"reservation completed", reservationDetails(), 2, true},
		{"order pending", orderDetails(), 0, false},
		{"order processing", orderDetails(), 1, false},
		{"order shipped", orderDetails(), 2, true},
		{"order delivered", orderDetails(), 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(t, tt.details)
			for i := 0; i < tt.steps; i++ {
				var err error
				r, err = lifecycle.Advance(r, created)
				require.NoError(t, err)
			}
			before := r.Status

			got, err := lifecycle.Cancel(r, "", created)
			if tt.wantErr {
				assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
				assert.Equal(t, before, got.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, lifecycle.StatusCancelled, got.Status)
			assert.Equal(t, before, got.CancelledFrom)
		})
	}
}

func TestCancelledIsTerminal(t *testing.T) {
	r := newRequest(t, orderDetails())
	r, err := lifecycle.Cancel(r, "", created)
	require.NoError(t, err)

	_, err = lifecycle.Cancel(r, "again", created)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	_, err = lifecycle.Advance(r, created)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestTimelineFollowsStatus(t *testing.T) {
	r := newRequest(t, orderDetails())
	r, _ = lifecycle.Advance(r, created)
	r, _ = lifecycle.Advance(r, created)

	steps := lifecycle.Timeline(r)
	require.Len(t, steps, 3)
	labels := []string{steps[0].Label, steps[1].Label, steps[2].Label}
	assert.Equal(t, []string{"Commande passée", "Commande en cours de traitement", "Commande expédiée"}, labels)
	for _, s := range steps {
		assert.True(t, s.Completed)
		assert.Equal(t, created, s.At)
	}
}

func TestTimelineOfCancelledProcessingOrder(t *testing.T) {
	r := newRequest(t, orderDetails())
	r, _ = lifecycle.Advance(r, created)
	r, err := lifecycle.Cancel(r, "rupture de stock", created)
	require.NoError(t, err)

	steps := lifecycle.Timeline(r)
	require.Len(t, steps, 2)
	assert.Equal(t, lifecycle.StatusProcessing, steps[1].Status)
}

func TestBadge(t *testing.T) {
	assert.Equal(t, "En attente", lifecycle.Badge(lifecycle.StatusPending))
	assert.Equal(t, "Expédiée", lifecycle.Badge(lifecycle.StatusShipped))
	assert.Equal(t, "Annulée", lifecycle.Badge(lifecycle.StatusCancelled))
	assert.Equal(t, "unknown", lifecycle.Badge("unknown"))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, lifecycle.ValidStatus(lifecycle.KindOrder, lifecycle.StatusShipped))
	assert.False(t, lifecycle.ValidStatus(lifecycle.KindReservation, lifecycle.StatusShipped))
	assert.True(t, lifecycle.ValidStatus(lifecycle.KindReservation, lifecycle.StatusCancelled))
}

func newTracker(repo lifecycle.Repository, opts ...lifecycle.Option) *lifecycle.Tracker {
	n := 0
	opts = append([]lifecycle.Option{
		lifecycle.WithClock(func() time.Time { return created }),
		lifecycle.WithIDGenerator(func() string {
			n++
			return "req-" + string(rune('0'+n))
		}),
	}, opts...)
	return lifecycle.NewTracker(repo, opts...)
}

func TestTrackerPersistsTransitions(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	var actions []string
	tr := newTracker(repo, lifecycle.WithObserver(func(_ lifecycle.Kind, action string, _ lifecycle.Request) {
		actions = append(actions, action)
	}))

	r, err := tr.Create(ctx, orderDetails())
	require.NoError(t, err)
	assert.Equal(t, "req-1", r.ID)

	_, err = tr.Advance(ctx, r.ID)
	require.NoError(t, err)
	got, err := tr.Cancel(ctx, r.ID, "client-1", "changement d'avis")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelled, got.Status)
	assert.Equal(t, "client-1", got.CancelledBy)

	stored, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelled, stored.Status)
	assert.Equal(t, lifecycle.StatusProcessing, stored.CancelledFrom)
	assert.Equal(t, []string{"create", "advance", "cancel"}, actions)

	owned, err := tr.ListByOwner(ctx, "client-1", lifecycle.KindOrder)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
	targeted, err := tr.ListByTarget(ctx, "vendor-1", lifecycle.KindOrder)
	require.NoError(t, err)
	assert.Len(t, targeted, 1)
}

func TestTrackerRejectedTransitionLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	tr := newTracker(repo)

	r, err := tr.Create(ctx, orderDetails())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = tr.Advance(ctx, r.ID)
		require.NoError(t, err)
	}

	_, err = tr.Cancel(ctx, r.ID, "client-1", "")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	stored, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusShipped, stored.Status)
}

func TestTrackerUnknownID(t *testing.T) {
	tr := newTracker(store.NewMemory())
	_, err := tr.Advance(context.Background(), "missing")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

type failingRepo struct{ lifecycle.Repository }

func (failingRepo) Save(context.Context, lifecycle.Request) error { return errors.New("disk full") }

func (failingRepo) SaveAll(context.Context, []lifecycle.Request) error { return errors.New("disk full") }

func TestTrackerCreateSurfacesSaveError(t *testing.T) {
	tr := newTracker(failingRepo{store.NewMemory()})
	_, err := tr.Create(context.Background(), reservationDetails())
	assert.EqualError(t, err, "disk full")
}

func TestTrackerValidationBeforeSave(t *testing.T) {
	repo := store.NewMemory()
	tr := newTracker(repo)
	d := reservationDetails()
	d.OwnerID = ""

	_, err := tr.Create(context.Background(), d)
	var verr *lifecycle.ValidationError
	require.ErrorAs(t, err, &verr)

	all, err := repo.List(context.Background(), lifecycle.KindReservation)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTrackerCreateAll(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	var created []string
	tr := newTracker(repo, lifecycle.WithObserver(func(_ lifecycle.Kind, action string, r lifecycle.Request) {
		created = append(created, action+":"+r.ID)
	}))

	second := orderDetails()
	second.TargetID = "vendor-2"
	rs, err := tr.CreateAll(ctx, []lifecycle.Details{orderDetails(), second})
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, []string{"create:req-1", "create:req-2"}, created)

	owned, err := repo.FindByOwner(ctx, "client-1", lifecycle.KindOrder)
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestTrackerCreateAllStoresNothingOnError(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	tr := newTracker(repo)

	bad := orderDetails()
	bad.OwnerID = ""
	_, err := tr.CreateAll(ctx, []lifecycle.Details{orderDetails(), bad})
	var verr *lifecycle.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = newTracker(failingRepo{repo}).CreateAll(ctx, []lifecycle.Details{orderDetails()})
	assert.EqualError(t, err, "disk full")

	all, err := repo.List(ctx, lifecycle.KindOrder)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTrackerObserversRunUnlocked(t *testing.T) {
	ctx := context.Background()
	var tr *lifecycle.Tracker
	var other string
	tr = newTracker(store.NewMemory(), lifecycle.WithObserver(func(_ lifecycle.Kind, action string, _ lifecycle.Request) {
		if action == "cancel" {
			_, err := tr.Advance(ctx, other)
			assert.NoError(t, err)
		}
	}))
	first, err := tr.Create(ctx, orderDetails())
	require.NoError(t, err)
	second, err := tr.Create(ctx, orderDetails())
	require.NoError(t, err)
	other = second.ID

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := tr.Cancel(ctx, first.ID, "client-1", "")
		assert.NoError(t, err)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("observer blocked on the tracker lock")
	}

	got, err := tr.Get(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusProcessing, got.Status)
}
