package grpc

import (
	"context"
	"fmt"
	"math"

	"github.com/dmitrijs2005/realmd/internal/server/accounts"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AccountService is the account management the admin API exposes.
type AccountService interface {
	CreateAccount(ctx context.Context, username, password string) (accounts.Result, error)
	DeleteAccount(ctx context.Context, accountID uint32) (accounts.Result, error)
	ChangeUsername(ctx context.Context, accountID uint32, newUsername, newPassword string) (accounts.Result, error)
	ChangePassword(ctx context.Context, accountID uint32, newPassword string) (accounts.Result, error)
	GetID(ctx context.Context, username string) uint32
	GetName(ctx context.Context, accountID uint32) (string, bool)
	GetSecurity(ctx context.Context, accountID uint32) models.AccountType
	GetCharacterCount(ctx context.Context, accountID uint32) uint32
}

type adminServer struct {
	s *GRPCServer
}

func (a adminServer) CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, err := stringField(req, "username")
	if err != nil {
		return nil, err
	}
	password, err := stringField(req, "password")
	if err != nil {
		return nil, err
	}

	res, err := a.s.accounts.CreateAccount(ctx, username, password)
	if err != nil {
		return nil, a.internal(ctx, "create account", err)
	}

	fields := map[string]any{"result": res.String()}
	if res == accounts.Ok {
		fields["id"] = a.s.accounts.GetID(ctx, username)
		a.s.logger.Info(ctx, "account created via admin API", "username", accounts.Normalize(username), "by", callerID(ctx))
	}
	return structpb.NewStruct(fields)
}

func (a adminServer) DeleteAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(req)
	if err != nil {
		return nil, err
	}
	res, err := a.s.accounts.DeleteAccount(ctx, id)
	if err != nil {
		return nil, a.internal(ctx, "delete account", err)
	}
	return resultStruct(res)
}

func (a adminServer) ChangeUsername(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(req)
	if err != nil {
		return nil, err
	}
	username, err := stringField(req, "username")
	if err != nil {
		return nil, err
	}
	password, err := stringField(req, "password")
	if err != nil {
		return nil, err
	}
	res, err := a.s.accounts.ChangeUsername(ctx, id, username, password)
	if err != nil {
		return nil, a.internal(ctx, "change username", err)
	}
	return resultStruct(res)
}

func (a adminServer) ChangePassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(req)
	if err != nil {
		return nil, err
	}
	password, err := stringField(req, "password")
	if err != nil {
		return nil, err
	}
	res, err := a.s.accounts.ChangePassword(ctx, id, password)
	if err != nil {
		return nil, a.internal(ctx, "change password", err)
	}
	return resultStruct(res)
}

func (a adminServer) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(req)
	if err != nil {
		return nil, err
	}
	name, ok := a.s.accounts.GetName(ctx, id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "account %d not found", id)
	}
	security := a.s.accounts.GetSecurity(ctx, id)
	return structpb.NewStruct(map[string]any{
		"id":         id,
		"username":   name,
		"security":   security.String(),
		"gm":         accounts.IsGMAccount(security),
		"characters": a.s.accounts.GetCharacterCount(ctx, id),
	})
}

func (a adminServer) internal(ctx context.Context, op string, err error) error {
	a.s.logger.Error(ctx, op+" failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func resultStruct(res accounts.Result) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"result": res.String()})
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "missing %s", name)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return s.StringValue, nil
}

func idField(req *structpb.Struct) (uint32, error) {
	v, ok := req.GetFields()["id"]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "missing id")
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "id must be a number")
	}
	f := n.NumberValue
	if f < 1 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid id %v", f))
	}
	return uint32(f), nil
}
