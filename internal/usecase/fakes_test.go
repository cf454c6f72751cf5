package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/inbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/outbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/review"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/room"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/submission"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/travelerreport"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTx runs fn directly; commits and rollbacks are not modelled.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeBookings struct {
	mu      sync.Mutex
	byID    map[string]*booking.Booking
	gets    int
	totals  *booking.Totals
	lastFil booking.Filter
}

func newFakeBookings(list ...*booking.Booking) *fakeBookings {
	f := &fakeBookings{byID: map[string]*booking.Booking{}}
	for _, b := range list {
		f.byID[b.ID] = b
	}
	return f
}

func (f *fakeBookings) Create(_ context.Context, b *booking.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	b, ok := f.byID[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) UpdateStatus(_ context.Context, id string, status booking.Status, payment booking.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return booking.ErrNotFound
	}
	b.Status = status
	b.PaymentStatus = payment
	return nil
}

func (f *fakeBookings) List(_ context.Context, fil booking.Filter) ([]*booking.Booking, error) {
	f.lastFil = fil
	var out []*booking.Booking
	for _, b := range f.byID {
		if fil.Status == "" || b.Status == fil.Status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) Totals(context.Context, time.Time) (*booking.Totals, error) {
	return f.totals, nil
}

type fakeRooms struct {
	free      *postgres.FreeBed
	rooms     []*room.Room
	totalBeds int
	lastQuery struct {
		roomType booking.RoomType
		guests   int
	}
}

func (f *fakeRooms) FindFreeBed(_ context.Context, roomType booking.RoomType, _, _ time.Time, guests int) (*postgres.FreeBed, error) {
	f.lastQuery.roomType = roomType
	f.lastQuery.guests = guests
	if f.free == nil {
		return nil, room.ErrNoBedAvailable
	}
	return f.free, nil
}

func (f *fakeRooms) List(context.Context, time.Time) ([]*room.Room, error) {
	return f.rooms, nil
}

func (f *fakeRooms) TotalBeds(context.Context) (int, error) {
	return f.totalBeds, nil
}

type fakePilgrims struct {
	byID map[string]*pilgrim.Pilgrim
}

func newFakePilgrims(list ...*pilgrim.Pilgrim) *fakePilgrims {
	f := &fakePilgrims{byID: map[string]*pilgrim.Pilgrim{}}
	for _, p := range list {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakePilgrims) Create(_ context.Context, p *pilgrim.Pilgrim) error {
	f.byID[p.ID] = p
	return nil
}

func (f *fakePilgrims) GetByID(_ context.Context, id string) (*pilgrim.Pilgrim, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, pilgrim.ErrNotFound
	}
	return p, nil
}

func (f *fakePilgrims) ListByBooking(_ context.Context, bookingID string) ([]*pilgrim.Pilgrim, error) {
	var out []*pilgrim.Pilgrim
	for _, p := range f.byID {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeOutbox struct {
	events []*outbox.Event
}

func (f *fakeOutbox) Create(_ context.Context, e *outbox.Event) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeOutbox) ListByCorrelationID(_ context.Context, id string) ([]*outbox.Event, error) {
	var out []*outbox.Event
	for _, e := range f.events {
		if e.CorrelationID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeInbox struct {
	seen map[string]*inbox.Event
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{seen: map[string]*inbox.Event{}}
}

func (f *fakeInbox) Claim(_ context.Context, e *inbox.Event) (bool, error) {
	key := e.Consumer + "/" + e.EventID
	if _, ok := f.seen[key]; ok {
		return false, nil
	}
	f.seen[key] = e
	return true, nil
}

func (f *fakeInbox) ListForBooking(_ context.Context, id string) ([]*inbox.Event, error) {
	var out []*inbox.Event
	for _, e := range f.seen {
		if e.CorrelationID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeSubmissions upserts by id like the repository. failNext makes the next
// saves of a given status fail.
type fakeSubmissions struct {
	saved    []*submission.Submission
	counts   map[submission.Status]int
	failNext map[submission.Status]int
}

var errSaveFailed = errors.New("save failed")

func (f *fakeSubmissions) Save(_ context.Context, s *submission.Submission) error {
	if f.failNext[s.Status] > 0 {
		f.failNext[s.Status]--
		return errSaveFailed
	}
	cp := *s
	for i, existing := range f.saved {
		if existing.ID == s.ID {
			f.saved[i] = &cp
			return nil
		}
	}
	f.saved = append(f.saved, &cp)
	return nil
}

func (f *fakeSubmissions) ListByBooking(_ context.Context, id string) ([]*submission.Submission, error) {
	var out []*submission.Submission
	for _, s := range f.saved {
		if s.BookingID == id {
			out = append(out, s)
		}
	}
	return out, nil
}

// CountByStatus returns the preset counts when given, otherwise counts the stored rows.
func (f *fakeSubmissions) CountByStatus(context.Context) (map[submission.Status]int, error) {
	if f.counts != nil {
		return f.counts, nil
	}
	counts := map[submission.Status]int{}
	for _, s := range f.saved {
		counts[s.Status]++
	}
	return counts, nil
}

// rollbackTx restores the inbox and submission fakes when fn fails, the way a
// database rollback would discard the claim.
type rollbackTx struct {
	inbox *fakeInbox
	subs  *fakeSubmissions
	calls int
}

func (f *rollbackTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	seen := make(map[string]*inbox.Event, len(f.inbox.seen))
	for k, v := range f.inbox.seen {
		seen[k] = v
	}
	saved := make([]*submission.Submission, len(f.subs.saved))
	copy(saved, f.subs.saved)

	if err := fn(ctx); err != nil {
		f.inbox.seen = seen
		f.subs.saved = saved
		return err
	}
	return nil
}

type fakeReviews struct {
	list []*review.Review
}

func (f *fakeReviews) Create(_ context.Context, r *review.Review) error {
	f.list = append(f.list, r)
	return nil
}

func (f *fakeReviews) List(_ context.Context, limit int) ([]*review.Review, error) {
	if len(f.list) > limit {
		return f.list[:limit], nil
	}
	return f.list, nil
}

type fakeCache struct {
	data    map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = data
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

type fakeSubmitter struct {
	payloads [][]byte
	receipt  *travelerreport.Receipt
	err      error
	onSubmit func()
}

func (f *fakeSubmitter) Submit(_ context.Context, payload []byte) (*travelerreport.Receipt, error) {
	f.payloads = append(f.payloads, payload)
	if f.onSubmit != nil {
		f.onSubmit()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}
