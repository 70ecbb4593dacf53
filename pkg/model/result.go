package model

import "strconv"

type DescriptorType string

const (
	DescriptorFD         DescriptorType = "fd"
	DescriptorCwd        DescriptorType = "cwd"
	DescriptorRoot       DescriptorType = "root"
	DescriptorExe        DescriptorType = "executable"
	DescriptorMmap       DescriptorType = "memory_map"
	DescriptorUnresolved DescriptorType = "unresolved"
)

var descriptorRank = map[DescriptorType]int{
	DescriptorFD:         0,
	DescriptorCwd:        1,
	DescriptorRoot:       2,
	DescriptorExe:        3,
	DescriptorMmap:       4,
	DescriptorUnresolved: 5,
}

// Descriptor says how a process references the target. FD is only set for
// DescriptorFD.
type Descriptor struct {
	Type DescriptorType
	FD   int
}

func FDDescriptor(fd int) Descriptor {
	return Descriptor{Type: DescriptorFD, FD: fd}
}

// Less orders descriptors: fd (numeric), cwd, root, executable, memory_map,
// unresolved.
func (d Descriptor) Less(o Descriptor) bool {
	if d.Type != o.Type {
		return descriptorRank[d.Type] < descriptorRank[o.Type]
	}
	return d.FD < o.FD
}

func (d Descriptor) String() string {
	if d.Type == DescriptorFD {
		return "fd " + strconv.Itoa(d.FD)
	}
	return string(d.Type)
}

// HolderEvidence is one confirmed or degraded match. Unconfirmed evidence
// carries PID 0: the holder could not be identified.
type HolderEvidence struct {
	PID        int
	Command    string
	Descriptor Descriptor
	Confirmed  bool
	Note       string

	// Socket is set for port targets.
	Socket *SocketEntry
}

type WarningKind string

const (
	WarnPermissionDenied WarningKind = "permission_denied"
	WarnMalformedData    WarningKind = "malformed_kernel_data"
	WarnDuplicateInode   WarningKind = "duplicate_socket_inode"
	WarnIO               WarningKind = "io_error"
)

type Warning struct {
	Kind   WarningKind
	Detail string
}

type ResolutionResult struct {
	Target   Target
	Holders  []HolderEvidence
	Warnings []Warning

	// Degraded is set when at least one process could not be fully
	// inspected because of missing privilege.
	Degraded bool

	// Privileged is set when the run had effective uid 0.
	Privileged bool

	// Skipped counts processes that could not be inspected.
	Skipped int
}
