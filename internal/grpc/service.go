package grpcserver

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// AdminServiceName is the fully qualified gRPC service name. Requests and
// responses are google.protobuf.Struct documents shaped like the JSON API.
const AdminServiceName = "portal.admin.v1.AdminService"

type adminMethod func(s *AdminServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

var adminMethods = map[string]adminMethod{
	"GetDashboardStats": (*AdminServer).GetDashboardStats,
	"ListOrders":        (*AdminServer).ListOrders,
	"UpdateOrderStatus": (*AdminServer).UpdateOrderStatus,
	"ListTickets":       (*AdminServer).ListTickets,
	"BulkAutoReply":     (*AdminServer).BulkAutoReply,
	"SetMaintenance":    (*AdminServer).SetMaintenance,
	"TestSubdomain":     (*AdminServer).TestSubdomain,
}

// FullMethod returns the path clients invoke for an AdminService method.
func FullMethod(name string) string { return "/" + AdminServiceName + "/" + name }

func unaryHandler(name string, m adminMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			call := func(ctx context.Context, req any) (any, error) {
				return m(srv.(*AdminServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}, call)
		},
	}
}

// RegisterAdminService registers s on srv.
func RegisterAdminService(srv grpc.ServiceRegistrar, s *AdminServer) {
	desc := grpc.ServiceDesc{
		ServiceName: AdminServiceName,
		HandlerType: (*any)(nil),
		Metadata:    "portal/admin/v1/admin.proto",
	}
	for name, m := range adminMethods {
		desc.Methods = append(desc.Methods, unaryHandler(name, m))
	}
	srv.RegisterService(&desc, s)
}

// decodeStruct fills v from a Struct request using JSON field names.
func decodeStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return nil
	}
	b, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

// encodeStruct converts v to a Struct through its JSON form.
func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
