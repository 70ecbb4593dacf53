package model

type TargetType string

const (
	TargetFile TargetType = "file"
	TargetPort TargetType = "port"
)

type Protocol string

const (
	ProtocolTCP  Protocol = "tcp"
	ProtocolUDP  Protocol = "udp"
	ProtocolBoth Protocol = "both"
)

// Includes reports whether p selects proto. The zero value selects both.
func (p Protocol) Includes(proto Protocol) bool {
	return p == "" || p == ProtocolBoth || p == proto
}

type Family string

const (
	FamilyV4  Family = "v4"
	FamilyV6  Family = "v6"
	FamilyAny Family = "any"
)

func (f Family) Includes(fam Family) bool {
	return f == "" || f == FamilyAny || f == fam
}

// FileTarget identifies a file by its live device/inode pair, not its path.
type FileTarget struct {
	Dev   uint64
	Inode uint64
	Path  string
}

type PortTarget struct {
	Protocol Protocol
	Port     uint16
	Family   Family
}

// Target is resolved once before scanning and never changes afterwards.
// Exactly one of File or Port is meaningful, selected by Type.
type Target struct {
	Type  TargetType
	Value string
	File  FileTarget
	Port  PortTarget
}

// Options narrows which sockets are considered for port targets. It never
// changes how a descriptor is matched.
type Options struct {
	Protocol      Protocol
	Family        Family
	ListeningOnly bool
	Established   bool
}
