package process

import (
	"strings"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// Launcher names what most likely started a holder.
type Launcher struct {
	Kind string // "supervisor" or "shell"
	Name string
}

func (l Launcher) String() string {
	return l.Name + " (" + l.Kind + ")"
}

var shells = map[string]bool{
	"bash": true,
	"zsh":  true,
	"sh":   true,
	"fish": true,
	"csh":  true,
	"tcsh": true,
	"ksh":  true,
	"dash": true,
}

var supervisors = map[string]string{
	"systemd":         "systemd service",
	"supervisord":     "supervisord",
	"gunicorn":        "gunicorn",
	"uwsgi":           "uwsgi",
	"s6-supervise":    "s6",
	"s6-svscan":       "s6",
	"runsv":           "runit",
	"runit":           "runit",
	"openrc":          "openrc",
	"openrc-init":     "openrc",
	"monit":           "monit",
	"circusd":         "circus",
	"containerd-shim": "containerd",
	"conmon":          "podman",
	"tini":            "tini",
	"docker-init":     "docker-init",
	"init":            "init",
}

// DetectLauncher inspects an ancestry chain (root first, holder last). The
// closest shell wins, then the closest known supervisor. A pm2 daemon
// anywhere in the chain wins outright.
func DetectLauncher(chain []model.ProcessSnapshot) (Launcher, bool) {
	for _, p := range chain {
		if strings.HasPrefix(strings.ToLower(p.Command), "pm2") {
			return Launcher{Kind: "supervisor", Name: "pm2"}, true
		}
	}

	// the holder itself is not its own launcher
	for i := len(chain) - 2; i >= 0; i-- {
		if shells[chain[i].Command] {
			return Launcher{Kind: "shell", Name: chain[i].Command}, true
		}
	}
	for i := len(chain) - 2; i >= 0; i-- {
		if label, ok := supervisors[strings.ToLower(chain[i].Command)]; ok {
			return Launcher{Kind: "supervisor", Name: label}, true
		}
	}
	return Launcher{}, false
}
