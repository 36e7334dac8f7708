// Package models defines the data shared between the realmd repositories,
// services and transports.
package models

import "net/netip"

// RealmType is the display category (icon) of a realm.
type RealmType uint8

const (
	RealmTypeNormal  RealmType = 0
	RealmTypePVP     RealmType = 1
	RealmTypeNormal2 RealmType = 4
	RealmTypeRP      RealmType = 6
	RealmTypeRPPVP   RealmType = 8

	// MaxClientRealmType bounds the types the client can display.
	MaxClientRealmType RealmType = 14

	// RealmTypeFFAPVP is a historical alias stored by old tooling; clients
	// only know it as PVP.
	RealmTypeFFAPVP RealmType = 16
)

// NormalizeRealmType collapses the FFA PVP alias to PVP and maps anything
// the client cannot display to NORMAL.
func NormalizeRealmType(icon uint8) RealmType {
	t := RealmType(icon)
	if t == RealmTypeFFAPVP {
		t = RealmTypePVP
	}
	if t >= MaxClientRealmType {
		t = RealmTypeNormal
	}
	return t
}

// RealmFlags is the realm flag bitset shown in the client's realm list.
type RealmFlags uint8

const (
	RealmFlagNone            RealmFlags = 0x00
	RealmFlagVersionMismatch RealmFlags = 0x01
	RealmFlagOffline         RealmFlags = 0x02
	RealmFlagSpecifyBuild    RealmFlags = 0x04
	RealmFlagUnk1            RealmFlags = 0x08
	RealmFlagUnk2            RealmFlags = 0x10
	RealmFlagRecommended     RealmFlags = 0x20
	RealmFlagNew             RealmFlags = 0x40
	RealmFlagFull            RealmFlags = 0x80
)

func (f RealmFlags) Has(flag RealmFlags) bool { return f&flag == flag }

// Realm describes one world server as published in the realm list.
type Realm struct {
	ID    uint32
	Name  string
	Build uint32

	ExternalAddress netip.Addr
	LocalAddress    netip.Addr
	LocalSubnetMask netip.Addr
	Port            uint16

	Type                 RealmType
	Flags                RealmFlags
	Timezone             uint8
	AllowedSecurityLevel AccountType
	PopulationLevel      float32
}

// AddressForClient picks the endpoint a client at clientAddr should connect
// to. Clients on the login server host get the loopback or local address,
// clients inside the realm's local subnet get the local address, everyone
// else the external one.
func (r Realm) AddressForClient(clientAddr netip.Addr) netip.AddrPort {
	clientAddr = clientAddr.Unmap()

	var ip netip.Addr
	switch {
	case clientAddr.IsLoopback():
		if r.LocalAddress.IsLoopback() || r.ExternalAddress.IsLoopback() {
			ip = clientAddr
		} else {
			ip = r.LocalAddress
		}
	case clientAddr.Is4() && inNetwork(r.LocalAddress, r.LocalSubnetMask, clientAddr):
		ip = r.LocalAddress
	default:
		ip = r.ExternalAddress
	}

	return netip.AddrPortFrom(ip, r.Port)
}

func inNetwork(network, mask, client netip.Addr) bool {
	if !network.Is4() || !mask.Is4() || !client.Is4() {
		return false
	}
	n, m, c := network.As4(), mask.As4(), client.As4()
	for i := range n {
		if n[i]&m[i] != c[i]&m[i] {
			return false
		}
	}
	return true
}
