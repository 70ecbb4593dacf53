package output

import (
	"encoding/json"
	"io"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// The JSON shapes below are a stable contract: fields may be added, never
// renamed or removed.

type jsonWarning struct {
	Kind   model.WarningKind `json:"kind"`
	Detail string            `json:"detail"`
}

type jsonSocket struct {
	Protocol   model.Protocol `json:"protocol"`
	Family     model.Family   `json:"family"`
	LocalAddr  string         `json:"local_addr"`
	LocalPort  uint16         `json:"local_port"`
	RemoteAddr string         `json:"remote_addr"`
	RemotePort uint16         `json:"remote_port"`
	State      string         `json:"state"`
	Inode      uint64         `json:"inode"`
	OwnerUID   uint32         `json:"owner_uid"`
}

type jsonHolder struct {
	PID       int         `json:"pid"`
	Command   string      `json:"command"`
	Reason    string      `json:"reason"`
	FD        *int        `json:"fd,omitempty"`
	Confirmed bool        `json:"confirmed"`
	Note      string      `json:"note,omitempty"`
	Socket    *jsonSocket `json:"socket,omitempty"`
}

type jsonTarget struct {
	Type     model.TargetType `json:"type"`
	Value    string           `json:"value"`
	Path     string           `json:"path,omitempty"`
	Dev      uint64           `json:"dev,omitempty"`
	Inode    uint64           `json:"inode,omitempty"`
	Port     uint16           `json:"port,omitempty"`
	Protocol model.Protocol   `json:"protocol,omitempty"`
	Family   model.Family     `json:"family,omitempty"`
}

type jsonResult struct {
	Privilege   string        `json:"privilege"`
	ModeMessage string        `json:"mode_message"`
	Mode        string        `json:"mode"`
	Target      jsonTarget    `json:"target"`
	Degraded    bool          `json:"degraded"`
	Partial     bool          `json:"partial"`
	Skipped     int           `json:"skipped"`
	Warnings    []jsonWarning `json:"warnings"`
	Results     []jsonHolder  `json:"results"`
}

type jsonPortRow struct {
	Port      uint16         `json:"port"`
	Protocol  model.Protocol `json:"protocol"`
	PID       int            `json:"pid"`
	Command   string         `json:"command"`
	State     string         `json:"state"`
	LocalAddr string         `json:"local_addr"`
	Confirmed bool           `json:"confirmed"`
	Note      string         `json:"note,omitempty"`
}

type jsonPorts struct {
	Privilege   string        `json:"privilege"`
	ModeMessage string        `json:"mode_message"`
	Mode        string        `json:"mode"`
	Listening   bool          `json:"listening"`
	Established bool          `json:"established"`
	Degraded    bool          `json:"degraded"`
	Partial     bool          `json:"partial"`
	Skipped     int           `json:"skipped"`
	Warnings    []jsonWarning `json:"warnings"`
	Results     []jsonPortRow `json:"results"`
}

type jsonError struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func warningsJSON(in []model.Warning) []jsonWarning {
	out := make([]jsonWarning, 0, len(in))
	for _, w := range in {
		out = append(out, jsonWarning{Kind: w.Kind, Detail: w.Detail})
	}
	return out
}

func targetJSON(t model.Target) jsonTarget {
	out := jsonTarget{Type: t.Type, Value: t.Value}
	switch t.Type {
	case model.TargetFile:
		out.Path, out.Dev, out.Inode = t.File.Path, t.File.Dev, t.File.Inode
	case model.TargetPort:
		out.Port, out.Protocol, out.Family = t.Port.Port, t.Port.Protocol, t.Port.Family
	}
	return out
}

func holderJSON(h model.HolderEvidence) jsonHolder {
	out := jsonHolder{
		PID:       h.PID,
		Command:   h.Command,
		Reason:    string(h.Descriptor.Type),
		Confirmed: h.Confirmed,
		Note:      h.Note,
	}
	if h.Descriptor.Type == model.DescriptorFD {
		fd := h.Descriptor.FD
		out.FD = &fd
	}
	if s := h.Socket; s != nil {
		out.Socket = &jsonSocket{
			Protocol:   s.Protocol,
			Family:     s.Family,
			LocalAddr:  s.LocalAddr,
			LocalPort:  s.LocalPort,
			RemoteAddr: s.RemoteAddr,
			RemotePort: s.RemotePort,
			State:      s.StateLabel(),
			Inode:      s.Inode,
			OwnerUID:   s.OwnerUID,
		}
	}
	return out
}

// ResultJSON builds the JSON document for a path or port run.
func ResultJSON(res *model.ResolutionResult) any {
	mode := "path"
	if res.Target.Type == model.TargetPort {
		mode = "port"
	}
	results := make([]jsonHolder, 0, len(res.Holders))
	for _, h := range res.Holders {
		results = append(results, holderJSON(h))
	}
	return jsonResult{
		Privilege:   PrivilegeMode(res.Privileged),
		ModeMessage: ModeMessage(res.Privileged),
		Mode:        mode,
		Target:      targetJSON(res.Target),
		Degraded:    res.Degraded,
		Partial:     res.Skipped > 0,
		Skipped:     res.Skipped,
		Warnings:    warningsJSON(res.Warnings),
		Results:     results,
	}
}

// PortsJSON builds the JSON document for a port listing.
func PortsJSON(listing *model.PortListing, opts model.Options) any {
	rows := make([]jsonPortRow, 0, len(listing.Rows))
	for _, r := range listing.Rows {
		rows = append(rows, jsonPortRow{
			Port:      r.Port,
			Protocol:  r.Protocol,
			PID:       r.PID,
			Command:   r.Command,
			State:     r.State,
			LocalAddr: r.LocalAddr,
			Confirmed: r.Confirmed,
			Note:      r.Note,
		})
	}
	return jsonPorts{
		Privilege:   PrivilegeMode(listing.Privileged),
		ModeMessage: ModeMessage(listing.Privileged),
		Mode:        "ports",
		Listening:   opts.ListeningOnly,
		Established: opts.Established,
		Degraded:    listing.Degraded,
		Partial:     listing.Skipped > 0,
		Skipped:     listing.Skipped,
		Warnings:    warningsJSON(listing.Warnings),
		Results:     rows,
	}
}

// ErrorJSON builds the JSON document printed when a run fails.
func ErrorJSON(kind string, err error) any {
	return jsonError{Kind: kind, Error: err.Error()}
}

// WriteJSON writes v as a single line of JSON.
func WriteJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
