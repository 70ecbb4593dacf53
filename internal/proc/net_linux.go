//go:build linux

package proc

import (
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// NetTable is one of the kernel socket tables under <root>/net.
type NetTable struct {
	Name     string
	Protocol model.Protocol
	Family   model.Family
}

var NetTables = []NetTable{
	{Name: "tcp", Protocol: model.ProtocolTCP, Family: model.FamilyV4},
	{Name: "tcp6", Protocol: model.ProtocolTCP, Family: model.FamilyV6},
	{Name: "udp", Protocol: model.ProtocolUDP, Family: model.FamilyV4},
	{Name: "udp6", Protocol: model.ProtocolUDP, Family: model.FamilyV6},
}

func (p FS) NetTablePath(name string) string {
	return filepath.Join(p.root, "net", name)
}

// OpenNetTable opens <root>/net/<name> for reading.
func (p FS) OpenNetTable(name string) (io.ReadCloser, error) {
	return os.Open(p.NetTablePath(name))
}

// ParseNetLine parses one data row of a tcp/udp table:
//
//	sl local_address rem_address st tx_queue:rx_queue tr:tm->when retrnsmt uid timeout inode ...
//
// Fields after the inode are ignored, newer kernels append some.
func ParseNetLine(line string, t NetTable) (model.SocketEntry, error) {
	fields := strings.Fields(line)
	if len(fields) < 10 {
		return model.SocketEntry{}, fmt.Errorf("%d fields: %w", len(fields), ErrMalformed)
	}

	ipv6 := t.Family == model.FamilyV6
	localAddr, localPort, err := parseAddr(fields[1], ipv6)
	if err != nil {
		return model.SocketEntry{}, err
	}
	remoteAddr, remotePort, err := parseAddr(fields[2], ipv6)
	if err != nil {
		return model.SocketEntry{}, err
	}

	state, err := strconv.ParseUint(fields[3], 16, 8)
	if err != nil {
		return model.SocketEntry{}, fmt.Errorf("state %q: %w", fields[3], ErrMalformed)
	}
	uid, err := strconv.ParseUint(fields[7], 10, 32)
	if err != nil {
		return model.SocketEntry{}, fmt.Errorf("uid %q: %w", fields[7], ErrMalformed)
	}
	inode, err := strconv.ParseUint(fields[9], 10, 64)
	if err != nil {
		return model.SocketEntry{}, fmt.Errorf("inode %q: %w", fields[9], ErrMalformed)
	}

	return model.SocketEntry{
		Inode:      inode,
		Protocol:   t.Protocol,
		Family:     t.Family,
		LocalAddr:  localAddr,
		LocalPort:  localPort,
		RemoteAddr: remoteAddr,
		RemotePort: remotePort,
		State:      model.SocketState(state),
		OwnerUID:   uint32(uid),
	}, nil
}

func parseAddr(raw string, ipv6 bool) (string, uint16, error) {
	ipHex, portHex, ok := strings.Cut(raw, ":")
	if !ok {
		return "", 0, fmt.Errorf("address %q: %w", raw, ErrMalformed)
	}
	port, err := strconv.ParseUint(portHex, 16, 16)
	if err != nil {
		return "", 0, fmt.Errorf("port %q: %w", portHex, ErrMalformed)
	}

	b, err := hex.DecodeString(ipHex)
	if err != nil {
		return "", 0, fmt.Errorf("address %q: %w", ipHex, ErrMalformed)
	}

	if ipv6 {
		if len(b) != net.IPv6len {
			return "", 0, fmt.Errorf("ipv6 address %q: %w", ipHex, ErrMalformed)
		}
		// four 32-bit words, each in host (little-endian) order
		ip := make(net.IP, net.IPv6len)
		for i := 0; i < 4; i++ {
			ip[i*4+0] = b[i*4+3]
			ip[i*4+1] = b[i*4+2]
			ip[i*4+2] = b[i*4+1]
			ip[i*4+3] = b[i*4+0]
		}
		return ip.String(), uint16(port), nil
	}

	if len(b) != net.IPv4len {
		return "", 0, fmt.Errorf("ipv4 address %q: %w", ipHex, ErrMalformed)
	}
	ip := net.IPv4(b[3], b[2], b[1], b[0])
	return ip.String(), uint16(port), nil
}
