// Package api exposes the veil service over gRPC. Messages are
// google.protobuf.Struct values so no generated code is needed; the service
// descriptor below plays the role protoc-gen-go-grpc output normally does.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "veil.v1.Cipher"

// Method names.
const (
	MethodDeriveMapping  = "DeriveMapping"
	MethodEncode         = "Encode"
	MethodDecode         = "Decode"
	MethodCreateProtocol = "CreateProtocol"
	MethodSyncProtocol   = "SyncProtocol"
	MethodGetProtocol    = "GetProtocol"
	MethodListProtocols  = "ListProtocols"
	MethodDeleteProtocol = "DeleteProtocol"
	MethodAssess         = "Assess"
)

// CipherServer is the server API for the veil.v1.Cipher service.
type CipherServer interface {
	DeriveMapping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Encode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateProtocol(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SyncProtocol(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProtocol(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListProtocols(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteProtocol(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Assess(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(CipherServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// CipherServiceDesc describes veil.v1.Cipher for grpc.Server.RegisterService.
var CipherServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CipherServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodDeriveMapping, CipherServer.DeriveMapping),
		method(MethodEncode, CipherServer.Encode),
		method(MethodDecode, CipherServer.Decode),
		method(MethodCreateProtocol, CipherServer.CreateProtocol),
		method(MethodSyncProtocol, CipherServer.SyncProtocol),
		method(MethodGetProtocol, CipherServer.GetProtocol),
		method(MethodListProtocols, CipherServer.ListProtocols),
		method(MethodDeleteProtocol, CipherServer.DeleteProtocol),
		method(MethodAssess, CipherServer.Assess),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "veil/v1/cipher.proto",
}

// RegisterCipherServer registers srv with s.
func RegisterCipherServer(s grpc.ServiceRegistrar, srv CipherServer) {
	s.RegisterService(&CipherServiceDesc, srv)
}

// FullMethod returns the "/service/method" path for name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CipherServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CipherServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
