package model

import "fmt"

// SocketState is the raw state byte from a kernel network table.
type SocketState uint8

const (
	StateEstablished SocketState = 0x01
	StateSynSent     SocketState = 0x02
	StateSynRecv     SocketState = 0x03
	StateFinWait1    SocketState = 0x04
	StateFinWait2    SocketState = 0x05
	StateTimeWait    SocketState = 0x06
	StateClose       SocketState = 0x07
	StateCloseWait   SocketState = 0x08
	StateLastAck     SocketState = 0x09
	StateListen      SocketState = 0x0A
	StateClosing     SocketState = 0x0B
	StateNewSynRecv  SocketState = 0x0C
)

var tcpStateNames = map[SocketState]string{
	StateEstablished: "ESTABLISHED",
	StateSynSent:     "SYN_SENT",
	StateSynRecv:     "SYN_RECV",
	StateFinWait1:    "FIN_WAIT1",
	StateFinWait2:    "FIN_WAIT2",
	StateTimeWait:    "TIME_WAIT",
	StateClose:       "CLOSE",
	StateCloseWait:   "CLOSE_WAIT",
	StateLastAck:     "LAST_ACK",
	StateListen:      "LISTEN",
	StateClosing:     "CLOSING",
	StateNewSynRecv:  "NEW_SYN_RECV",
}

// Label renders the state the way ss(8) does for the given protocol.
func (s SocketState) Label(proto Protocol) string {
	if proto == ProtocolUDP {
		switch s {
		case StateClose:
			return "UNCONN"
		case StateEstablished:
			return "ESTABLISHED"
		}
		return fmt.Sprintf("0x%02X", uint8(s))
	}
	if name, ok := tcpStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(s))
}

// Listening reports whether a socket in this state accepts traffic on its
// local port without a peer: TCP LISTEN or unconnected UDP.
func (s SocketState) Listening(proto Protocol) bool {
	if proto == ProtocolUDP {
		return s == StateClose
	}
	return s == StateListen
}

// SocketEntry is one row of /proc/net/{tcp,tcp6,udp,udp6}.
type SocketEntry struct {
	Inode      uint64
	Protocol   Protocol
	Family     Family
	LocalAddr  string
	LocalPort  uint16
	RemoteAddr string
	RemotePort uint16
	State      SocketState
	OwnerUID   uint32
}

func (e SocketEntry) StateLabel() string {
	return e.State.Label(e.Protocol)
}

// PortHolder is one row of the port listing.
type PortHolder struct {
	Port      uint16
	Protocol  Protocol
	PID       int
	Command   string
	State     string
	LocalAddr string
	Confirmed bool
	Note      string
}

type PortListing struct {
	Rows       []PortHolder
	Warnings   []Warning
	Degraded   bool
	Privileged bool
	Skipped    int
}
