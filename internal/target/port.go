package target

import (
	"fmt"
	"strconv"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

func classifyPort(raw string, opts model.Options) (model.Target, error) {
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return model.Target{}, fmt.Errorf("%w: port %s out of range 0..65535", ErrInvalid, raw)
	}

	proto := opts.Protocol
	if proto == "" {
		proto = model.ProtocolBoth
	}
	family := opts.Family
	if family == "" {
		family = model.FamilyAny
	}

	return model.Target{
		Type:  model.TargetPort,
		Value: raw,
		Port: model.PortTarget{
			Protocol: proto,
			Port:     uint16(v),
			Family:   family,
		},
	}, nil
}
