package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/internal/data/repository"
	"waste-marketplace/internal/dto/request"
	"waste-marketplace/internal/dto/response"
	"waste-marketplace/internal/notification"
	"waste-marketplace/pkg/apperror"
	"waste-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const referenceAttempts = 3

const timeSlotLayout = "15:04"

type BookingService interface {
	CreateBooking(ctx context.Context, p entity.Principal, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBookingByID(ctx context.Context, p entity.Principal, bookingID string) (*response.BookingResponse, error)
	GetBookingByReference(ctx context.Context, p entity.Principal, reference string) (*response.BookingResponse, error)
	ListMyBookings(ctx context.Context, p entity.Principal, page request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	ListProviderBookings(ctx context.Context, p entity.Principal, status string, page request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)

	UpdateBookingStatus(ctx context.Context, p entity.Principal, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, p entity.Principal, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error)
	RateBooking(ctx context.Context, p entity.Principal, bookingID string, req *request.RateRequest) (*response.BookingResponse, error)
}

type bookingService struct {
	repo         *repository.Repository
	notify       *notifier
	cancelWindow time.Duration
	log          *zap.Logger
	now          func() time.Time
}

func NewBookingService(repo *repository.Repository, sink notification.Sink, config utils.BookingConfig, log *zap.Logger) BookingService {
	window := config.CancelWindow
	if window <= 0 {
		window = entity.DefaultCancelWindow
	}
	log = log.With(zap.String("service", "booking"))
	return &bookingService{
		repo:         repo,
		notify:       &notifier{sink: sink, users: repo.User, log: log},
		cancelWindow: window,
		log:          log,
		now:          time.Now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, p entity.Principal, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Create booking validation failed", zap.Error(err))
		return nil, err
	}
	if req.Address.IsZero() {
		return nil, apperror.Validation("address is required", map[string]any{"address": "required"})
	}
	slot, err := parseTimeSlot(req.TimeSlot)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !req.BookingDate.After(now) {
		return nil, apperror.Validation("booking date must be in the future", map[string]any{"booking_date": req.BookingDate})
	}

	serviceID, err := parseID(req.ServiceID, "service_id")
	if err != nil {
		return nil, err
	}

	service, err := s.repo.Service.FindActiveAvailable(ctx, serviceID)
	if err != nil {
		return nil, apperror.Internal("failed to load service", err)
	}
	if service == nil {
		return nil, s.unbookable(ctx, serviceID)
	}

	// phase one: take the availability gate
	claimed, err := s.repo.Service.Claim(ctx, service.ID, p.ID, now)
	if err != nil {
		return nil, apperror.Internal("failed to reserve service", err)
	}
	if !claimed {
		s.log.Info("Service claim lost",
			zap.String("service_id", service.ID.String()),
			zap.String("requester_id", p.ID.String()),
		)
		return nil, apperror.Conflict("service is not available")
	}

	// phase two: insert the booking, undoing the claim if it cannot be written
	booking, err := s.insertBooking(ctx, p, service, req, slot, now)
	if err != nil {
		if rbErr := s.repo.Service.RollbackClaim(context.WithoutCancel(ctx), service.ID, p.ID); rbErr != nil {
			s.log.Error("Failed to roll back service claim",
				zap.Error(rbErr),
				zap.String("service_id", service.ID.String()),
				zap.String("requester_id", p.ID.String()),
			)
		}
		return nil, apperror.Internal("failed to create booking", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_reference", booking.Reference),
		zap.String("service_id", service.ID.String()),
		zap.String("provider_id", booking.ProviderID.String()),
	)

	providerName := s.notify.displayName(ctx, service.ProviderID)
	event := bookingEvent(booking, booking.ProviderID, entity.NotificationBookingRequest,
		"New booking request", "You have a new booking request for "+service.Name)
	event.Payload["amount"] = booking.TotalAmount.String()
	event.Payload["counterpart_name"] = s.notify.displayName(ctx, p.ID)
	s.notify.send(ctx, event)

	resp := response.BookingToResponse(booking, response.ServiceToSummary(service, providerName))
	return &resp, nil
}

// unbookable tells a missing or inactive service apart from one that is taken.
func (s *bookingService) unbookable(ctx context.Context, serviceID uuid.UUID) error {
	service, err := s.repo.Service.FindByID(ctx, serviceID)
	if err != nil {
		return apperror.Internal("failed to load service", err)
	}
	if service == nil || service.Status != entity.ServiceStatusActive {
		return apperror.NotFoundWithID("service", serviceID.String())
	}
	return apperror.Conflict("service is not available")
}

// parseTimeSlot compares the bounds as clock times and stores them zero-padded.
func parseTimeSlot(req *request.TimeSlotRequest) (entity.TimeSlot, error) {
	start, err := time.Parse(timeSlotLayout, req.Start)
	if err != nil {
		return entity.TimeSlot{}, apperror.Validation("invalid time slot start", map[string]any{"time_slot.start": req.Start})
	}
	end, err := time.Parse(timeSlotLayout, req.End)
	if err != nil {
		return entity.TimeSlot{}, apperror.Validation("invalid time slot end", map[string]any{"time_slot.end": req.End})
	}
	if !end.After(start) {
		return entity.TimeSlot{}, apperror.Validation("time slot must end after it starts", map[string]any{
			"time_slot": req.Start + "-" + req.End,
		})
	}
	return entity.TimeSlot{Start: start.Format(timeSlotLayout), End: end.Format(timeSlotLayout)}, nil
}

func (s *bookingService) insertBooking(ctx context.Context, p entity.Principal, service *entity.Service, req *request.CreateBookingRequest, slot entity.TimeSlot, now time.Time) (*entity.Booking, error) {
	contact := entity.ContactPerson{
		Name:  strings.TrimSpace(req.ContactPerson.Name),
		Phone: strings.TrimSpace(req.ContactPerson.Phone),
		Email: req.ContactPerson.Email,
	}

	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		booking := entity.NewBooking(p.ID, service, utils.GenerateBookingReference(now), *req.BookingDate,
			slot, *req.Address, contact, req.SpecialInstructions, req.Requirements, now)

		err = s.repo.Booking.Create(ctx, booking)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, repository.ErrDuplicateReference) {
			return nil, err
		}
		s.log.Debug("Booking reference collision, regenerating", zap.String("booking_reference", booking.Reference))
	}
	return nil, err
}

func bookingEvent(b *entity.Booking, recipient uuid.UUID, kind entity.NotificationKind, title, message string) notification.Event {
	return notification.Event{
		RecipientID: recipient,
		Kind:        kind,
		Title:       title,
		Message:     message,
		Payload: map[string]any{
			"booking_id":        b.ID.String(),
			"booking_reference": b.Reference,
			"status":            b.Status.String(),
		},
		OccurredAt: b.UpdatedAt,
	}
}

// load hides bookings the caller has no relationship to.
func (s *bookingService) load(ctx context.Context, p entity.Principal, bookingID string) (*entity.Booking, access, error) {
	id, err := parseID(bookingID, "booking_id")
	if err != nil {
		return nil, access{}, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, access{}, apperror.Internal("failed to load booking", err)
	}
	if booking == nil {
		return nil, access{}, apperror.NotFoundWithID("booking", id.String())
	}

	acc := bookingAccess(p, booking)
	if !acc.canView() {
		return nil, access{}, apperror.NotFoundWithID("booking", id.String())
	}
	return booking, acc, nil
}

func (s *bookingService) save(ctx context.Context, booking *entity.Booking, from entity.BookingStatus) error {
	err := s.repo.Booking.Update(ctx, booking, from)
	if errors.Is(err, repository.ErrStaleStatus) {
		return apperror.Conflict("booking was modified concurrently, please retry").WithDetails(map[string]any{
			"expected_status": from.String(),
		})
	}
	if err != nil {
		return apperror.Internal("failed to update booking", err)
	}
	return nil
}

// release frees the service gate; a failure never fails the booking change.
func (s *bookingService) release(ctx context.Context, booking *entity.Booking) {
	if err := s.repo.Service.Release(context.WithoutCancel(ctx), booking.ServiceID); err != nil {
		s.log.Error("Failed to release service availability",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("service_id", booking.ServiceID.String()),
		)
	}
}

func (s *bookingService) withService(ctx context.Context, booking *entity.Booking) *response.BookingResponse {
	service, err := s.repo.Service.FindByID(ctx, booking.ServiceID)
	if err != nil {
		s.log.Debug("Service lookup for booking failed", zap.Error(err), zap.String("service_id", booking.ServiceID.String()))
	}
	var summary *response.ServiceSummary
	if service != nil {
		summary = response.ServiceToSummary(service, s.notify.displayName(ctx, service.ProviderID))
	}
	resp := response.BookingToResponse(booking, summary)
	return &resp
}

func (s *bookingService) GetBookingByID(ctx context.Context, p entity.Principal, bookingID string) (*response.BookingResponse, error) {
	booking, _, err := s.load(ctx, p, bookingID)
	if err != nil {
		return nil, err
	}
	return s.withService(ctx, booking), nil
}

// GetBookingByReference looks a booking up by its human-readable reference,
// with the same visibility rule as GetBookingByID.
func (s *bookingService) GetBookingByReference(ctx context.Context, p entity.Principal, reference string) (*response.BookingResponse, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return nil, apperror.Validation("booking reference is required", map[string]any{"reference": "required"})
	}

	booking, err := s.repo.Booking.FindByReference(ctx, reference)
	if err != nil {
		return nil, apperror.Internal("failed to load booking", err)
	}
	if booking == nil || !bookingAccess(p, booking).canView() {
		return nil, apperror.NotFoundWithID("booking", reference)
	}
	return s.withService(ctx, booking), nil
}

func bookingToListItem(b *entity.Booking) response.BookingResponse {
	return response.BookingToResponse(b, nil)
}

func (s *bookingService) ListMyBookings(ctx context.Context, p entity.Principal, page request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	return paginate(ctx, page,
		func(ctx context.Context, limit, offset int) ([]*entity.Booking, error) {
			return s.repo.Booking.FindByRequester(ctx, p.ID, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.repo.Booking.CountByRequester(ctx, p.ID)
		},
		bookingToListItem,
	)
}

func (s *bookingService) ListProviderBookings(ctx context.Context, p entity.Principal, status string, page request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	filter := entity.BookingStatus(status)
	if filter != "" && !filter.Valid() {
		return nil, apperror.Validation("invalid booking status", map[string]any{"status": status})
	}

	return paginate(ctx, page,
		func(ctx context.Context, limit, offset int) ([]*entity.Booking, error) {
			return s.repo.Booking.FindByProvider(ctx, p.ID, filter, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.repo.Booking.CountByProvider(ctx, p.ID, filter)
		},
		bookingToListItem,
	)
}

func (s *bookingService) UpdateBookingStatus(ctx context.Context, p entity.Principal, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	booking, acc, err := s.load(ctx, p, bookingID)
	if err != nil {
		return nil, err
	}

	by := entity.CancelledByProvider
	switch {
	case acc.isBoundProvider:
	case acc.isAdmin():
		by = entity.CancelledByAdmin
	default:
		return nil, apperror.Forbidden("only the provider or an admin can update the booking status")
	}

	from := booking.Status
	next := entity.BookingStatus(req.Status)
	if err := booking.TransitionTo(next, by, req.ProviderNotes, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, booking, from); err != nil {
		return nil, err
	}

	s.log.Info("Booking status updated",
		zap.String("booking_id", booking.ID.String()),
		zap.String("from", from.String()),
		zap.String("to", next.String()),
	)

	if next.ReleasesService() {
		s.release(ctx, booking)
	}

	event := bookingEvent(booking, booking.RequesterID, entity.NotificationBookingStatus,
		"Booking "+next.String(), "Your booking "+booking.Reference+" is now "+next.String())
	event.Payload["previous_status"] = from.String()
	event.Payload["counterpart_name"] = s.notify.displayName(ctx, booking.ProviderID)
	s.notify.send(ctx, event)

	return s.withService(ctx, booking), nil
}

func (s *bookingService) CancelBooking(ctx context.Context, p entity.Principal, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error) {
	if req == nil {
		req = &request.CancelBookingRequest{}
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	booking, acc, err := s.load(ctx, p, bookingID)
	if err != nil {
		return nil, err
	}
	by, ok := acc.cancelledBy()
	if !ok {
		return nil, apperror.Forbidden("you cannot cancel this booking")
	}

	from := booking.Status
	if err := booking.Cancel(by, req.Reason, s.now(), s.cancelWindow); err != nil {
		return nil, err
	}
	if err := s.save(ctx, booking, from); err != nil {
		return nil, err
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("cancelled_by", string(by)),
		zap.String("from", from.String()),
	)

	s.release(ctx, booking)

	var recipients []uuid.UUID
	switch by {
	case entity.CancelledByUser:
		recipients = []uuid.UUID{booking.ProviderID}
	case entity.CancelledByProvider:
		recipients = []uuid.UUID{booking.RequesterID}
	default:
		recipients = []uuid.UUID{booking.RequesterID, booking.ProviderID}
	}
	for _, recipient := range recipients {
		event := bookingEvent(booking, recipient, entity.NotificationBookingStatus,
			"Booking cancelled", "Booking "+booking.Reference+" was cancelled")
		event.Payload["previous_status"] = from.String()
		event.Payload["cancelled_by"] = string(by)
		if req.Reason != nil {
			event.Payload["reason"] = *req.Reason
		}
		s.notify.send(ctx, event)
	}

	return s.withService(ctx, booking), nil
}

func (s *bookingService) RateBooking(ctx context.Context, p entity.Principal, bookingID string, req *request.RateRequest) (*response.BookingResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	booking, acc, err := s.load(ctx, p, bookingID)
	if err != nil {
		return nil, err
	}
	if !acc.isOwner {
		return nil, apperror.Forbidden("only the requester can rate a booking")
	}

	if err := booking.Rate(req.Rating, req.Review, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, booking, booking.Status); err != nil {
		return nil, err
	}

	s.log.Info("Booking rated",
		zap.String("booking_id", booking.ID.String()),
		zap.Int("rating", req.Rating),
	)

	event := bookingEvent(booking, booking.ProviderID, entity.NotificationBookingStatus,
		"New rating", "Booking "+booking.Reference+" was rated")
	event.Payload["rating"] = req.Rating
	event.Payload["counterpart_name"] = s.notify.displayName(ctx, p.ID)
	s.notify.send(ctx, event)

	return s.withService(ctx, booking), nil
}
