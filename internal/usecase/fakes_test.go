package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/internal/data/repository"
	"waste-marketplace/internal/notification"
	"waste-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func mustDecimal(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeUsers struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*entity.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uuid.UUID]*entity.User{}}
}

func (f *fakeUsers) add(role entity.UserRole, name string) entity.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &entity.User{Base: entity.Base{ID: uuid.New()}, Username: name, Role: role, IsActive: true, IsVerified: true}
	f.users[u.ID] = u
	return entity.Principal{ID: u.ID, Role: role, Verified: true}
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.users[id], nil
}

// fakeListings keeps clones so callers can only change stored state through Save and AppendOffer.
type fakeListings struct {
	mu        sync.Mutex
	listings  map[uuid.UUID]*entity.Listing
	conflicts int // number of Save calls to fail with ErrVersionConflict
	saves     int
}

func newFakeListings() *fakeListings {
	return &fakeListings{listings: map[uuid.UUID]*entity.Listing{}}
}

func (f *fakeListings) Create(_ context.Context, l *entity.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[l.ID] = l.Clone()
	return nil
}

func (f *fakeListings) get(id uuid.UUID) *entity.Listing {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil
	}
	return l.Clone()
}

func (f *fakeListings) FindByID(_ context.Context, id uuid.UUID) (*entity.Listing, error) {
	return f.get(id), nil
}

func (f *fakeListings) AppendOffer(_ context.Context, listingID uuid.UUID, offer *entity.Offer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := l.AppendOffer(*offer, offer.CreatedAt); err != nil {
		return repository.ErrListingClosed
	}
	l.Version++
	return nil
}

func (f *fakeListings) Save(_ context.Context, l *entity.Listing, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.conflicts > 0 {
		f.conflicts--
		return repository.ErrVersionConflict
	}
	stored, ok := f.listings[l.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	l.Version = expectedVersion + 1
	f.listings[l.ID] = l.Clone()
	return nil
}

func (f *fakeListings) filter(keep func(*entity.Listing) bool) []*entity.Listing {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*entity.Listing{}
	for _, l := range f.listings {
		if keep(l) {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func isOpen(wasteType entity.WasteType) func(*entity.Listing) bool {
	return func(l *entity.Listing) bool {
		return l.Status.IsBidding() && (wasteType == "" || l.WasteType == wasteType)
	}
}

func ownedBy(owner uuid.UUID) func(*entity.Listing) bool {
	return func(l *entity.Listing) bool { return l.OwnerID == owner }
}

func boundTo(provider uuid.UUID) func(*entity.Listing) bool {
	return func(l *entity.Listing) bool { return l.IsBoundProvider(provider) }
}

func (f *fakeListings) FindByOwner(_ context.Context, owner uuid.UUID, limit, offset int) ([]*entity.Listing, error) {
	return page(f.filter(ownedBy(owner)), limit, offset), nil
}

func (f *fakeListings) CountByOwner(_ context.Context, owner uuid.UUID) (int64, error) {
	return int64(len(f.filter(ownedBy(owner)))), nil
}

func (f *fakeListings) FindOpen(_ context.Context, wasteType entity.WasteType, limit, offset int) ([]*entity.Listing, error) {
	return page(f.filter(isOpen(wasteType)), limit, offset), nil
}

func (f *fakeListings) CountOpen(_ context.Context, wasteType entity.WasteType) (int64, error) {
	return int64(len(f.filter(isOpen(wasteType)))), nil
}

func (f *fakeListings) FindByProvider(_ context.Context, provider uuid.UUID, limit, offset int) ([]*entity.Listing, error) {
	return page(f.filter(boundTo(provider)), limit, offset), nil
}

func (f *fakeListings) CountByProvider(_ context.Context, provider uuid.UUID) (int64, error) {
	return int64(len(f.filter(boundTo(provider)))), nil
}

type fakeBookings struct {
	mu         sync.Mutex
	bookings   map[uuid.UUID]*entity.Booking
	references map[string]struct{}
	createErr  error
	duplicates int // number of Create calls to fail with ErrDuplicateReference
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{bookings: map[uuid.UUID]*entity.Booking{}, references: map[string]struct{}{}}
}

func (f *fakeBookings) Create(_ context.Context, b *entity.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.duplicates > 0 {
		f.duplicates--
		return repository.ErrDuplicateReference
	}
	if _, taken := f.references[b.Reference]; taken {
		return repository.ErrDuplicateReference
	}
	copied := *b
	f.bookings[b.ID] = &copied
	f.references[b.Reference] = struct{}{}
	return nil
}

func (f *fakeBookings) put(b *entity.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *b
	f.bookings[b.ID] = &copied
}

func (f *fakeBookings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

func (f *fakeBookings) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookings) FindByReference(_ context.Context, reference string) (*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.Reference == reference {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeBookings) filter(keep func(*entity.Booking) bool) []*entity.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*entity.Booking{}
	for _, b := range f.bookings {
		if keep(b) {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeBookings) FindByRequester(_ context.Context, requester uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	return page(f.filter(func(b *entity.Booking) bool { return b.RequesterID == requester }), limit, offset), nil
}

func (f *fakeBookings) CountByRequester(_ context.Context, requester uuid.UUID) (int64, error) {
	return int64(len(f.filter(func(b *entity.Booking) bool { return b.RequesterID == requester }))), nil
}

func providerStatus(provider uuid.UUID, status entity.BookingStatus) func(*entity.Booking) bool {
	return func(b *entity.Booking) bool {
		return b.ProviderID == provider && (status == "" || b.Status == status)
	}
}

func (f *fakeBookings) FindByProvider(_ context.Context, provider uuid.UUID, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	return page(f.filter(providerStatus(provider, status)), limit, offset), nil
}

func (f *fakeBookings) CountByProvider(_ context.Context, provider uuid.UUID, status entity.BookingStatus) (int64, error) {
	return int64(len(f.filter(providerStatus(provider, status)))), nil
}

func (f *fakeBookings) Update(_ context.Context, b *entity.Booking, expected entity.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.bookings[b.ID]
	if !ok || stored.Status != expected {
		return repository.ErrStaleStatus
	}
	copied := *b
	f.bookings[b.ID] = &copied
	return nil
}

type fakeServices struct {
	mu         sync.Mutex
	services   map[uuid.UUID]*entity.Service
	releaseErr error
}

func newFakeServices() *fakeServices {
	return &fakeServices{services: map[uuid.UUID]*entity.Service{}}
}

func (f *fakeServices) add(provider uuid.UUID, status entity.ServiceStatus, available bool) *entity.Service {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &entity.Service{
		Base:        entity.Base{ID: uuid.New()},
		ProviderID:  provider,
		Name:        "Organic waste pickup",
		Category:    "pickup",
		Price:       mustDecimal("150000"),
		Status:      status,
		IsAvailable: available,
	}
	f.services[s.ID] = s
	copied := *s
	return &copied
}

func (f *fakeServices) get(id uuid.UUID) entity.Service {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.services[id]
}

func (f *fakeServices) find(id uuid.UUID, keep func(*entity.Service) bool) *entity.Service {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[id]
	if !ok || !keep(s) {
		return nil
	}
	copied := *s
	return &copied
}

func (f *fakeServices) FindByID(_ context.Context, id uuid.UUID) (*entity.Service, error) {
	return f.find(id, func(*entity.Service) bool { return true }), nil
}

func (f *fakeServices) FindActiveAvailable(_ context.Context, id uuid.UUID) (*entity.Service, error) {
	return f.find(id, (*entity.Service).IsBookable), nil
}

func (f *fakeServices) Claim(_ context.Context, id, claimant uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[id]
	if !ok || !s.IsBookable() {
		return false, nil
	}
	s.IsAvailable = false
	s.BookedBy = &claimant
	s.BookedAt = &at
	s.BookingsCount++
	return true, nil
}

func (f *fakeServices) Release(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return f.releaseErr
	}
	s, ok := f.services[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsAvailable = true
	s.BookedBy = nil
	s.BookedAt = nil
	return nil
}

func (f *fakeServices) RollbackClaim(_ context.Context, id, claimant uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[id]
	if !ok || s.IsAvailable || s.BookedBy == nil || *s.BookedBy != claimant {
		return nil
	}
	s.IsAvailable = true
	s.BookedBy = nil
	s.BookedAt = nil
	s.BookingsCount--
	return nil
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []*entity.Notification
}

func (f *fakeNotifications) Create(_ context.Context, n *entity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	return nil
}

func (f *fakeNotifications) mine(recipient uuid.UUID, unreadOnly bool) []*entity.Notification {
	out := []*entity.Notification{}
	for i := len(f.items) - 1; i >= 0; i-- {
		n := f.items[i]
		if n.RecipientID == recipient && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeNotifications) FindByRecipient(_ context.Context, recipient uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return page(f.mine(recipient, unreadOnly), limit, offset), nil
}

func (f *fakeNotifications) CountByRecipient(_ context.Context, recipient uuid.UUID, unreadOnly bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.mine(recipient, unreadOnly))), nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id, recipient uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ID == id && n.RecipientID == recipient {
			if !n.IsRead {
				n.IsRead = true
				n.ReadAt = &at
			}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, recipient uuid.UUID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var updated int64
	for _, n := range f.items {
		if n.RecipientID == recipient && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			updated++
		}
	}
	return updated, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []notification.Event
	err    error
}

func (s *recordingSink) Notify(_ context.Context, event notification.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) to(recipient uuid.UUID) []notification.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []notification.Event{}
	for _, e := range s.events {
		if e.RecipientID == recipient {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

var errBoom = errors.New("boom")

type testEnv struct {
	users         *fakeUsers
	listings      *fakeListings
	bookings      *fakeBookings
	services      *fakeServices
	notifications *fakeNotifications
	sink          *recordingSink
	repo          *repository.Repository

	listing      *listingService
	booking      *bookingService
	notification *notificationService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:         newFakeUsers(),
		listings:      newFakeListings(),
		bookings:      newFakeBookings(),
		services:      newFakeServices(),
		notifications: &fakeNotifications{},
		sink:          &recordingSink{},
	}
	env.repo = &repository.Repository{
		User:         env.users,
		Listing:      env.listings,
		Booking:      env.bookings,
		Service:      env.services,
		Notification: env.notifications,
	}

	log := zap.NewNop()
	env.listing = NewListingService(env.repo, env.sink, utils.ListingConfig{MaxRetries: 3}, log).(*listingService)
	env.listing.now = clock
	env.booking = NewBookingService(env.repo, env.sink, utils.BookingConfig{}, log).(*bookingService)
	env.booking.now = clock
	env.notification = NewNotificationService(env.notifications, log).(*notificationService)
	env.notification.now = clock
	return env
}
