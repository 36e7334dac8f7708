package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The services carry protobuf well-known types only, so both sides can be
// described without generated code.
const (
	RealmDirectoryService = "realmd.v1.RealmDirectory"
	AccountAdminService   = "realmd.v1.AccountAdmin"

	methodListRealms     = "/" + RealmDirectoryService + "/ListRealms"
	methodGetRealm       = "/" + RealmDirectoryService + "/GetRealm"
	methodGetBuildInfo   = "/" + RealmDirectoryService + "/GetBuildInfo"
	methodCreateAccount  = "/" + AccountAdminService + "/CreateAccount"
	methodDeleteAccount  = "/" + AccountAdminService + "/DeleteAccount"
	methodChangeUsername = "/" + AccountAdminService + "/ChangeUsername"
	methodChangePassword = "/" + AccountAdminService + "/ChangePassword"
	methodGetAccount     = "/" + AccountAdminService + "/GetAccount"
)

type RealmDirectoryServer interface {
	ListRealms(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetRealm(context.Context, *wrapperspb.UInt32Value) (*structpb.Struct, error)
	GetBuildInfo(context.Context, *wrapperspb.UInt32Value) (*structpb.Struct, error)
}

type AccountAdminServer interface {
	CreateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangeUsername(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangePassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// unary builds a grpc.MethodHandler the way generated code does: decode
// the request, then call the implementation through the interceptor chain.
func unary[S any, Req proto.Message, Resp proto.Message](fullMethod string, newReq func() Req, call func(S, context.Context, Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newEmpty() *emptypb.Empty           { return &emptypb.Empty{} }
func newUInt32() *wrapperspb.UInt32Value { return &wrapperspb.UInt32Value{} }
func newStruct() *structpb.Struct        { return &structpb.Struct{} }

var RealmDirectoryServiceDesc = grpc.ServiceDesc{
	ServiceName: RealmDirectoryService,
	HandlerType: (*RealmDirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListRealms", Handler: unary(methodListRealms, newEmpty, RealmDirectoryServer.ListRealms)},
		{MethodName: "GetRealm", Handler: unary(methodGetRealm, newUInt32, RealmDirectoryServer.GetRealm)},
		{MethodName: "GetBuildInfo", Handler: unary(methodGetBuildInfo, newUInt32, RealmDirectoryServer.GetBuildInfo)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "realmd/v1/realmd.proto",
}

var AccountAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: AccountAdminService,
	HandlerType: (*AccountAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateAccount", Handler: unary(methodCreateAccount, newStruct, AccountAdminServer.CreateAccount)},
		{MethodName: "DeleteAccount", Handler: unary(methodDeleteAccount, newStruct, AccountAdminServer.DeleteAccount)},
		{MethodName: "ChangeUsername", Handler: unary(methodChangeUsername, newStruct, AccountAdminServer.ChangeUsername)},
		{MethodName: "ChangePassword", Handler: unary(methodChangePassword, newStruct, AccountAdminServer.ChangePassword)},
		{MethodName: "GetAccount", Handler: unary(methodGetAccount, newStruct, AccountAdminServer.GetAccount)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "realmd/v1/realmd.proto",
}

// RealmDirectoryClient calls RealmDirectory over cc.
type RealmDirectoryClient struct {
	cc grpc.ClientConnInterface
}

func NewRealmDirectoryClient(cc grpc.ClientConnInterface) *RealmDirectoryClient {
	return &RealmDirectoryClient{cc: cc}
}

func (c *RealmDirectoryClient) ListRealms(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListRealms, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RealmDirectoryClient) GetRealm(ctx context.Context, id uint32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetRealm, wrapperspb.UInt32(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RealmDirectoryClient) GetBuildInfo(ctx context.Context, build uint32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetBuildInfo, wrapperspb.UInt32(build), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// AccountAdminClient calls AccountAdmin over cc. Requests and responses are
// plain maps converted to and from structpb.Struct.
type AccountAdminClient struct {
	cc grpc.ClientConnInterface
}

func NewAccountAdminClient(cc grpc.ClientConnInterface) *AccountAdminClient {
	return &AccountAdminClient{cc: cc}
}

func (c *AccountAdminClient) call(ctx context.Context, method string, req map[string]any, opts []grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *AccountAdminClient) CreateAccount(ctx context.Context, username, password string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.call(ctx, methodCreateAccount, map[string]any{"username": username, "password": password}, opts)
}

func (c *AccountAdminClient) DeleteAccount(ctx context.Context, id uint32, opts ...grpc.CallOption) (map[string]any, error) {
	return c.call(ctx, methodDeleteAccount, map[string]any{"id": id}, opts)
}

func (c *AccountAdminClient) ChangeUsername(ctx context.Context, id uint32, username, password string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.call(ctx, methodChangeUsername, map[string]any{"id": id, "username": username, "password": password}, opts)
}

func (c *AccountAdminClient) ChangePassword(ctx context.Context, id uint32, password string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.call(ctx, methodChangePassword, map[string]any{"id": id, "password": password}, opts)
}

func (c *AccountAdminClient) GetAccount(ctx context.Context, id uint32, opts ...grpc.CallOption) (map[string]any, error) {
	return c.call(ctx, methodGetAccount, map[string]any{"id": id}, opts)
}
