package grpc

import (
	"context"

	grpclib "google.golang.org/grpc"
)

const ServiceName = "venuebook.v1.BookingService"

type BookingServiceServer interface {
	GetAvailableSlots(ctx context.Context, req *GetAvailableSlotsRequest) (*GetAvailableSlotsResponse, error)
	GetWeekAvailability(ctx context.Context, req *GetWeekAvailabilityRequest) (*GetWeekAvailabilityResponse, error)
	IsTimeSlotAvailable(ctx context.Context, req *SlotRequest) (*IsTimeSlotAvailableResponse, error)
	ValidateBookingRequest(ctx context.Context, req *SlotRequest) (*ValidateBookingRequestResponse, error)
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*BookingResponse, error)
	CanStaffPerformService(ctx context.Context, req *CanStaffPerformServiceRequest) (*CanStaffPerformServiceResponse, error)
	UpdateBookingStatus(ctx context.Context, req *UpdateBookingStatusRequest) (*BookingResponse, error)
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error)

func unaryHandler[Req, Resp any](method string, call func(BookingServiceServer, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServiceServer), ctx, in)
		}
		info := &grpclib.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var BookingServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "GetAvailableSlots", Handler: unaryHandler("GetAvailableSlots", BookingServiceServer.GetAvailableSlots)},
		{MethodName: "GetWeekAvailability", Handler: unaryHandler("GetWeekAvailability", BookingServiceServer.GetWeekAvailability)},
		{MethodName: "IsTimeSlotAvailable", Handler: unaryHandler("IsTimeSlotAvailable", BookingServiceServer.IsTimeSlotAvailable)},
		{MethodName: "ValidateBookingRequest", Handler: unaryHandler("ValidateBookingRequest", BookingServiceServer.ValidateBookingRequest)},
		{MethodName: "CreateBooking", Handler: unaryHandler("CreateBooking", BookingServiceServer.CreateBooking)},
		{MethodName: "CanStaffPerformService", Handler: unaryHandler("CanStaffPerformService", BookingServiceServer.CanStaffPerformService)},
		{MethodName: "UpdateBookingStatus", Handler: unaryHandler("UpdateBookingStatus", BookingServiceServer.UpdateBookingStatus)},
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "venuebook/v1/booking",
}

func RegisterBookingServiceServer(s grpclib.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}

// BookingServiceClient calls the service over a connection using the JSON codec.
type BookingServiceClient struct {
	cc grpclib.ClientConnInterface
}

func NewBookingServiceClient(cc grpclib.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpclib.ClientConnInterface, method string, req *Req, opts []grpclib.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) GetAvailableSlots(ctx context.Context, req *GetAvailableSlotsRequest, opts ...grpclib.CallOption) (*GetAvailableSlotsResponse, error) {
	return invoke[GetAvailableSlotsRequest, GetAvailableSlotsResponse](ctx, c.cc, "GetAvailableSlots", req, opts)
}

func (c *BookingServiceClient) GetWeekAvailability(ctx context.Context, req *GetWeekAvailabilityRequest, opts ...grpclib.CallOption) (*GetWeekAvailabilityResponse, error) {
	return invoke[GetWeekAvailabilityRequest, GetWeekAvailabilityResponse](ctx, c.cc, "GetWeekAvailability", req, opts)
}

func (c *BookingServiceClient) IsTimeSlotAvailable(ctx context.Context, req *SlotRequest, opts ...grpclib.CallOption) (*IsTimeSlotAvailableResponse, error) {
	return invoke[SlotRequest, IsTimeSlotAvailableResponse](ctx, c.cc, "IsTimeSlotAvailable", req, opts)
}

func (c *BookingServiceClient) ValidateBookingRequest(ctx context.Context, req *SlotRequest, opts ...grpclib.CallOption) (*ValidateBookingRequestResponse, error) {
	return invoke[SlotRequest, ValidateBookingRequestResponse](ctx, c.cc, "ValidateBookingRequest", req, opts)
}

func (c *BookingServiceClient) CreateBooking(ctx context.Context, req *CreateBookingRequest, opts ...grpclib.CallOption) (*BookingResponse, error) {
	return invoke[CreateBookingRequest, BookingResponse](ctx, c.cc, "CreateBooking", req, opts)
}

func (c *BookingServiceClient) CanStaffPerformService(ctx context.Context, req *CanStaffPerformServiceRequest, opts ...grpclib.CallOption) (*CanStaffPerformServiceResponse, error) {
	return invoke[CanStaffPerformServiceRequest, CanStaffPerformServiceResponse](ctx, c.cc, "CanStaffPerformService", req, opts)
}

func (c *BookingServiceClient) UpdateBookingStatus(ctx context.Context, req *UpdateBookingStatusRequest, opts ...grpclib.CallOption) (*BookingResponse, error) {
	return invoke[UpdateBookingStatusRequest, BookingResponse](ctx, c.cc, "UpdateBookingStatus", req, opts)
}
