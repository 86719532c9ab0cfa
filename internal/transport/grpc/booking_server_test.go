package grpc

import (
	"context"
	"log/slog"
	"net"
	"testing"

	"github.com/google/uuid"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"venuebook/backend/internal/availability"
	"venuebook/backend/internal/domain"
	"venuebook/backend/internal/service/booking"
	"venuebook/backend/internal/store"
)

type fakeBookingService struct {
	slotsFn    func(ctx context.Context, q booking.SlotQuery) (booking.DayAvailability, error)
	weekFn     func(ctx context.Context, q booking.WeekQuery) ([]booking.DayAvailability, error)
	pointFn    func(ctx context.Context, in booking.SlotCheck) (booking.SlotAvailability, error)
	validateFn func(ctx context.Context, in booking.BookingRequest) (availability.ValidationResult, error)
	createFn   func(ctx context.Context, in booking.CreateBookingInput, bypass bool) (domain.Booking, error)
	canFn      func(ctx context.Context, staffID, serviceID int64) (bool, error)
	statusFn   func(ctx context.Context, in booking.UpdateStatusInput) (domain.Booking, error)
}

func (f *fakeBookingService) GetAvailableSlots(ctx context.Context, q booking.SlotQuery) (booking.DayAvailability, error) {
	if f.slotsFn == nil {
		panic("GetAvailableSlots not configured")
	}
	return f.slotsFn(ctx, q)
}

func (f *fakeBookingService) GetWeekAvailability(ctx context.Context, q booking.WeekQuery) ([]booking.DayAvailability, error) {
	if f.weekFn == nil {
		panic("GetWeekAvailability not configured")
	}
	return f.weekFn(ctx, q)
}

func (f *fakeBookingService) IsTimeSlotAvailable(ctx context.Context, in booking.SlotCheck) (booking.SlotAvailability, error) {
	if f.pointFn == nil {
		panic("IsTimeSlotAvailable not configured")
	}
	return f.pointFn(ctx, in)
}

func (f *fakeBookingService) ValidateBookingRequest(ctx context.Context, in booking.BookingRequest) (availability.ValidationResult, error) {
	if f.validateFn == nil {
		panic("ValidateBookingRequest not configured")
	}
	return f.validateFn(ctx, in)
}

func (f *fakeBookingService) CreateBooking(ctx context.Context, in booking.CreateBookingInput, bypass bool) (domain.Booking, error) {
	if f.createFn == nil {
		panic("CreateBooking not configured")
	}
	return f.createFn(ctx, in, bypass)
}

func (f *fakeBookingService) CanStaffPerformService(ctx context.Context, staffID, serviceID int64) (bool, error) {
	if f.canFn == nil {
		panic("CanStaffPerformService not configured")
	}
	return f.canFn(ctx, staffID, serviceID)
}

func (f *fakeBookingService) UpdateBookingStatus(ctx context.Context, in booking.UpdateStatusInput) (domain.Booking, error) {
	if f.statusFn == nil {
		panic("UpdateBookingStatus not configured")
	}
	return f.statusFn(ctx, in)
}

func slot() SlotRequest {
	return SlotRequest{VenueID: 1, ServiceID: 10, Date: "2026-11-03", StartTime: "12:00", EndTime: "13:00", PartySize: 2}
}

func TestIdempotencyKey_ReadsHeadersAndTrims(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "  abc  "))
	if got := idempotencyKey(ctx); got != "abc" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "abc")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-idempotency-key", "xyz"))
	if got := idempotencyKey(ctx); got != "xyz" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "xyz")
	}
}

func TestCreateBooking_PassesIdempotencyKeyAndBypass(t *testing.T) {
	var (
		gotKey    string
		gotBypass bool
	)
	srv := NewBookingServer(&fakeBookingService{
		createFn: func(ctx context.Context, in booking.CreateBookingInput, bypass bool) (domain.Booking, error) {
			gotKey, gotBypass = in.IdempotencyKey, bypass
			return domain.Booking{ID: uuid.MustParse("00000000-0000-0000-0000-000000000010"), Status: domain.BookingPending}, nil
		},
	}, slog.Default())

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "k1"))
	resp, err := srv.CreateBooking(ctx, &CreateBookingRequest{SlotRequest: slot(), BypassAdvanceHours: true})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if gotKey != "k1" || !gotBypass {
		t.Fatalf("key = %q bypass = %v", gotKey, gotBypass)
	}
	if resp.Booking.Status != "pending" {
		t.Fatalf("status = %q, want pending", resp.Booking.Status)
	}
}

func TestCreateBooking_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"conflict", &booking.ConflictError{Reason: availability.ReasonCapacityExceeded}, codes.Aborted},
		{"validation", &booking.ValidationError{Violations: []availability.Violation{{Code: availability.ViolationInPast, Message: "past"}}}, codes.InvalidArgument},
		{"not found", &booking.NotFoundError{Resource: "venue", ID: "1"}, codes.NotFound},
		{"format", &booking.InputFormatError{Field: "date", Value: "x"}, codes.InvalidArgument},
		{"idempotency", store.ErrIdempotencyConflict, codes.FailedPrecondition},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"internal", net.ErrClosed, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewBookingServer(&fakeBookingService{
				createFn: func(ctx context.Context, in booking.CreateBookingInput, bypass bool) (domain.Booking, error) {
					return domain.Booking{}, tt.err
				},
			}, slog.Default())

			_, err := srv.CreateBooking(context.Background(), &CreateBookingRequest{SlotRequest: slot()})
			if status.Code(err) != tt.want {
				t.Fatalf("code = %s, want %s", status.Code(err), tt.want)
			}
		})
	}
}

func TestUpdateBookingStatus_RejectsInvalidUUIDAndMapsRefusals(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{
		statusFn: func(ctx context.Context, in booking.UpdateStatusInput) (domain.Booking, error) {
			if in.Status != domain.BookingCancelled {
				t.Fatalf("status = %s, want cancelled", in.Status)
			}
			return domain.Booking{}, booking.ErrCancellationWindow
		},
	}, slog.Default())

	_, err := srv.UpdateBookingStatus(context.Background(), &UpdateBookingStatusRequest{BookingID: "not-a-uuid", Status: "cancelled"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}

	_, err = srv.UpdateBookingStatus(context.Background(), &UpdateBookingStatusRequest{BookingID: uuid.NewString(), Status: "cancelled"})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.FailedPrecondition)
	}
}

func TestGetAvailableSlots_RejectsInvalidExcludeID(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{}, slog.Default())

	_, err := srv.GetAvailableSlots(context.Background(), &GetAvailableSlotsRequest{VenueID: 1, ServiceID: 1, Date: "2026-11-03", ExcludeBookingID: "nope"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestBookingService_OverTheWire(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	server := grpclib.NewServer()
	RegisterBookingServiceServer(server, NewBookingServer(&fakeBookingService{
		slotsFn: func(ctx context.Context, q booking.SlotQuery) (booking.DayAvailability, error) {
			if q.From != "18:00" || q.PartySize != 2 {
				t.Errorf("query = %+v", q)
			}
			staff := int64(7)
			return booking.DayAvailability{
				Date:      q.Date,
				DayOfWeek: domain.Tuesday,
				TimeSlots: []domain.TimeSlot{{StartTime: "18:00", EndTime: "19:00", Available: true, RemainingCapacity: 2, StaffMemberID: &staff}},
			}, nil
		},
		validateFn: func(ctx context.Context, in booking.BookingRequest) (availability.ValidationResult, error) {
			return availability.ValidationResult{
				Errors: []availability.Violation{
					{Code: availability.ViolationInPast, Message: "past"},
					{Code: availability.ViolationOutsideHours, Message: "closed"},
				},
			}, nil
		},
		createFn: func(ctx context.Context, in booking.CreateBookingInput, bypass bool) (domain.Booking, error) {
			return domain.Booking{}, &booking.ConflictError{Reason: availability.ReasonCapacityExceeded}
		},
	}, slog.Default()))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	client := NewBookingServiceClient(conn)
	ctx := context.Background()

	slots, err := client.GetAvailableSlots(ctx, &GetAvailableSlotsRequest{VenueID: 1, ServiceID: 10, Date: "2026-11-03", PartySize: 2, From: "18:00"})
	if err != nil {
		t.Fatalf("GetAvailableSlots error: %v", err)
	}
	got := slots.Availability
	if got.Date != "2026-11-03" || got.DayOfWeek != domain.Tuesday || len(got.TimeSlots) != 1 {
		t.Fatalf("availability = %+v", got)
	}
	if s := got.TimeSlots[0]; s.StartTime != "18:00" || s.RemainingCapacity != 2 || s.StaffMemberID == nil || *s.StaffMemberID != 7 {
		t.Fatalf("slot = %+v", s)
	}

	req := slot()
	res, err := client.ValidateBookingRequest(ctx, &req)
	if err != nil {
		t.Fatalf("ValidateBookingRequest error: %v", err)
	}
	if res.Valid || len(res.Errors) != 2 || res.Errors[1].Code != availability.ViolationOutsideHours {
		t.Fatalf("validation = %+v", res)
	}

	_, err = client.CreateBooking(ctx, &CreateBookingRequest{SlotRequest: slot()})
	if status.Code(err) != codes.Aborted {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.Aborted)
	}
}
