package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"venuebook/backend/internal/availability"
	"venuebook/backend/internal/domain"
	"venuebook/backend/internal/service/booking"
	"venuebook/backend/internal/store"
)

type BookingServer struct {
	svc bookingService
	log *slog.Logger
}

var _ BookingServiceServer = (*BookingServer)(nil)

type bookingService interface {
	GetAvailableSlots(ctx context.Context, q booking.SlotQuery) (booking.DayAvailability, error)
	GetWeekAvailability(ctx context.Context, q booking.WeekQuery) ([]booking.DayAvailability, error)
	IsTimeSlotAvailable(ctx context.Context, in booking.SlotCheck) (booking.SlotAvailability, error)
	ValidateBookingRequest(ctx context.Context, in booking.BookingRequest) (availability.ValidationResult, error)
	CreateBooking(ctx context.Context, in booking.CreateBookingInput, bypassAdvanceHours bool) (domain.Booking, error)
	CanStaffPerformService(ctx context.Context, staffID, serviceID int64) (bool, error)
	UpdateBookingStatus(ctx context.Context, in booking.UpdateStatusInput) (domain.Booking, error)
}

func NewBookingServer(svc bookingService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.booking")),
	}
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func parseOptionalUUID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s must be a UUID", field)
	}
	return id, nil
}

// toStatus maps service errors to gRPC codes. Expected outcomes are logged at Info or
// Warn; anything unrecognized is an internal error.
func toStatus(log *slog.Logger, err error) error {
	var (
		nErr *booking.NotFoundError
		fErr *booking.InputFormatError
		vErr *booking.ValidationError
		cErr *booking.ConflictError
	)
	switch {
	case errors.As(err, &nErr):
		log.Info("not found", slog.String("resource", nErr.Resource), slog.String("id", nErr.ID))
		return status.Error(codes.NotFound, nErr.Error())
	case errors.As(err, &fErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, fErr.Error())
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.As(err, &cErr):
		log.Info("booking conflict", slog.String("reason", string(cErr.Reason)))
		return status.Error(codes.Aborted, "That time is no longer available. Refresh the slots and pick another.")
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.Info("idempotency conflict")
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different booking. Try again.")
	case errors.Is(err, booking.ErrInvalidStatusTransition), errors.Is(err, booking.ErrCancellationWindow):
		log.Info("status change refused", slog.Any("err", err))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, store.ErrConflict):
		log.Info("concurrent update", slog.Any("err", err))
		return status.Error(codes.Aborted, "The booking changed while updating. Reload it and try again.")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("deadline exceeded", slog.Any("err", err))
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		log.Error("request failed", slog.Any("err", err))
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *BookingServer) GetAvailableSlots(ctx context.Context, req *GetAvailableSlotsRequest) (*GetAvailableSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "GetAvailableSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	exclude, err := parseOptionalUUID("exclude_booking_id", req.ExcludeBookingID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, err
	}

	day, err := s.svc.GetAvailableSlots(ctx, booking.SlotQuery{
		VenueID:          req.VenueID,
		ServiceID:        req.ServiceID,
		Date:             req.Date,
		StaffMemberID:    req.StaffMemberID,
		PartySize:        req.PartySize,
		From:             req.From,
		To:               req.To,
		ExcludeBookingID: exclude,
	})
	if err != nil {
		return nil, toStatus(log.With(slog.Int64("venue_id", req.VenueID), slog.Int64("service_id", req.ServiceID)), err)
	}

	log.Debug(
		"slots listed",
		slog.Int64("venue_id", req.VenueID),
		slog.Int64("service_id", req.ServiceID),
		slog.String("date", day.Date),
		slog.Int("count", len(day.TimeSlots)),
	)
	return &GetAvailableSlotsResponse{Availability: day}, nil
}

func (s *BookingServer) GetWeekAvailability(ctx context.Context, req *GetWeekAvailabilityRequest) (*GetWeekAvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "GetWeekAvailability"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	days, err := s.svc.GetWeekAvailability(ctx, booking.WeekQuery{
		VenueID:       req.VenueID,
		ServiceID:     req.ServiceID,
		StartDate:     req.StartDate,
		StaffMemberID: req.StaffMemberID,
		PartySize:     req.PartySize,
	})
	if err != nil {
		return nil, toStatus(log.With(slog.Int64("venue_id", req.VenueID), slog.Int64("service_id", req.ServiceID)), err)
	}
	return &GetWeekAvailabilityResponse{Days: days}, nil
}

func (s *BookingServer) slotCheck(req *SlotRequest) (booking.SlotCheck, error) {
	exclude, err := parseOptionalUUID("exclude_booking_id", req.ExcludeBookingID)
	if err != nil {
		return booking.SlotCheck{}, err
	}
	return booking.SlotCheck{
		VenueID:          req.VenueID,
		ServiceID:        req.ServiceID,
		StaffMemberID:    req.StaffMemberID,
		Date:             req.Date,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		PartySize:        req.PartySize,
		ExcludeBookingID: exclude,
	}, nil
}

func (s *BookingServer) IsTimeSlotAvailable(ctx context.Context, req *SlotRequest) (*IsTimeSlotAvailableResponse, error) {
	log := s.log.With(slog.String("rpc", "IsTimeSlotAvailable"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	in, err := s.slotCheck(req)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, err
	}

	res, err := s.svc.IsTimeSlotAvailable(ctx, in)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &IsTimeSlotAvailableResponse{Available: res.Available, Reason: res.Reason}, nil
}

func (s *BookingServer) ValidateBookingRequest(ctx context.Context, req *SlotRequest) (*ValidateBookingRequestResponse, error) {
	log := s.log.With(slog.String("rpc", "ValidateBookingRequest"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	in, err := s.slotCheck(req)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, err
	}

	res, err := s.svc.ValidateBookingRequest(ctx, in)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &ValidateBookingRequestResponse{Valid: res.Valid, Errors: res.Errors}, nil
}

func (s *BookingServer) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	in, err := s.slotCheck(&req.SlotRequest)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, err
	}

	b, err := s.svc.CreateBooking(ctx, booking.CreateBookingInput{
		BookingRequest: in,
		CustomerName:   req.CustomerName,
		Notes:          req.Notes,
		IdempotencyKey: idempotencyKey(ctx),
	}, req.BypassAdvanceHours)
	if err != nil {
		return nil, toStatus(log.With(
			slog.Int64("venue_id", req.VenueID),
			slog.Int64("service_id", req.ServiceID),
			slog.String("date", req.Date),
			slog.String("start_time", req.StartTime),
		), err)
	}

	log.Info(
		"booking created",
		slog.String("booking_id", b.ID.String()),
		slog.Int64("venue_id", b.VenueID),
		slog.String("date", b.Date),
		slog.String("start_time", b.StartTime.String()),
	)
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}

func (s *BookingServer) CanStaffPerformService(ctx context.Context, req *CanStaffPerformServiceRequest) (*CanStaffPerformServiceResponse, error) {
	log := s.log.With(slog.String("rpc", "CanStaffPerformService"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	ok, err := s.svc.CanStaffPerformService(ctx, req.StaffMemberID, req.ServiceID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &CanStaffPerformServiceResponse{CanPerform: ok}, nil
}

func (s *BookingServer) UpdateBookingStatus(ctx context.Context, req *UpdateBookingStatusRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateBookingStatus"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := uuid.Parse(strings.TrimSpace(req.BookingID))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, status.Error(codes.InvalidArgument, "booking_id must be a UUID")
	}

	b, err := s.svc.UpdateBookingStatus(ctx, booking.UpdateStatusInput{
		BookingID:                id,
		Status:                   domain.BookingStatus(strings.TrimSpace(req.Status)),
		BypassCancellationWindow: req.BypassCancellationWindow,
	})
	if err != nil {
		return nil, toStatus(log.With(slog.String("booking_id", id.String())), err)
	}

	log.Info("booking status updated", slog.String("booking_id", b.ID.String()), slog.String("status", string(b.Status)))
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}
