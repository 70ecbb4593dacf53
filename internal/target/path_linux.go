package target

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

func classifyPath(raw string) (model.Target, error) {
	var st unix.Stat_t
	if err := unix.Stat(raw, &st); err != nil {
		return model.Target{}, fmt.Errorf("%w: %s: %v", ErrNotFound, raw, err)
	}

	if st.Mode&unix.S_IFMT == unix.S_IFSOCK {
		return model.Target{}, fmt.Errorf("%w: %s is a socket special file; pass its port instead", ErrInvalid, raw)
	}

	display := raw
	if abs, err := filepath.Abs(raw); err == nil {
		display = abs
	}

	return model.Target{
		Type:  model.TargetFile,
		Value: raw,
		File: model.FileTarget{
			Dev:   uint64(st.Dev),
			Inode: st.Ino,
			Path:  display,
		},
	}, nil
}
