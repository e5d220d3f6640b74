package net

import (
	"net"
	"net/netip"
)

const redactedAddr = "<redacted>"

// Addr is a peer address that can hide itself from logs and other
// display output while keeping the real value available.
type Addr struct {
	ap     netip.AddrPort
	hidden bool
}

func NewAddr(ap netip.AddrPort, hidden bool) Addr {
	return Addr{ap: ap, hidden: hidden}
}

// AddrFrom converts a net.Addr from a socket. Non-IP addresses become the
// zero AddrPort.
func AddrFrom(a net.Addr, hidden bool) Addr {
	if tcp, ok := a.(*net.TCPAddr); ok {
		return NewAddr(tcp.AddrPort(), hidden)
	}
	ap, _ := netip.ParseAddrPort(a.String())
	return NewAddr(ap, hidden)
}

// AddrPort returns the real address regardless of redaction.
func (a Addr) AddrPort() netip.AddrPort {
	return a.ap
}

func (a Addr) Hidden() bool {
	return a.hidden
}

func (a Addr) String() string {
	if a.hidden {
		return redactedAddr
	}
	return a.ap.String()
}
