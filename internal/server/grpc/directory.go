package grpc

import (
	"context"
	"encoding/hex"
	"net"
	"net/netip"

	"github.com/dmitrijs2005/realmd/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RealmDirectory is the read side of the realm registry.
type RealmDirectory interface {
	Realms() []models.Realm
	GetRealm(id uint32) (models.Realm, bool)
	GetBuildInfo(build uint32) (models.BuildInfo, bool)
}

type directoryServer struct {
	s *GRPCServer
}

func (d directoryServer) ListRealms(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	client := peerAddr(ctx)

	realms := d.s.directory.Realms()
	list := make([]any, 0, len(realms))
	for _, r := range realms {
		list = append(list, realmFields(r, client))
	}

	out, err := structpb.NewStruct(map[string]any{"realms": list})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (d directoryServer) GetRealm(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	r, ok := d.s.directory.GetRealm(req.GetValue())
	if !ok {
		return nil, status.Errorf(codes.NotFound, "realm %d not found", req.GetValue())
	}
	out, err := structpb.NewStruct(realmFields(r, peerAddr(ctx)))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (d directoryServer) GetBuildInfo(_ context.Context, req *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	b, ok := d.s.directory.GetBuildInfo(req.GetValue())
	if !ok {
		return nil, status.Errorf(codes.NotFound, "build %d not found", req.GetValue())
	}
	out, err := structpb.NewStruct(map[string]any{
		"build":          b.Build,
		"major_version":  b.MajorVersion,
		"minor_version":  b.MinorVersion,
		"bugfix_version": b.BugfixVersion,
		"hotfix_version": b.Hotfix(),
		"windows_hash":   hex.EncodeToString(b.WindowsHash[:]),
		"mac_hash":       hex.EncodeToString(b.MacHash[:]),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// realmFields renders a realm with the endpoint chosen for client.
func realmFields(r models.Realm, client netip.Addr) map[string]any {
	return map[string]any{
		"id":                     r.ID,
		"name":                   r.Name,
		"address":                r.AddressForClient(client).String(),
		"external_address":       r.ExternalAddress.String(),
		"local_address":          r.LocalAddress.String(),
		"port":                   uint32(r.Port),
		"type":                   uint32(r.Type),
		"flags":                  uint32(r.Flags),
		"timezone":               uint32(r.Timezone),
		"allowed_security_level": uint32(r.AllowedSecurityLevel),
		"population":             float64(r.PopulationLevel),
		"build":                  r.Build,
	}
}

// peerAddr returns the caller's IP, or the zero Addr for transports
// without one.
func peerAddr(ctx context.Context) netip.Addr {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return netip.Addr{}
	}
	if tcp, ok := p.Addr.(*net.TCPAddr); ok {
		if a, ok := netip.AddrFromSlice(tcp.IP); ok {
			return a.Unmap()
		}
	}
	if ap, err := netip.ParseAddrPort(p.Addr.String()); err == nil {
		return ap.Addr().Unmap()
	}
	return netip.Addr{}
}
