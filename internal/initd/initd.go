package initd

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// Restarter restarts system services.
type Restarter interface {
	Restart(ctx context.Context, service string) error
}

// ScriptRestarter invokes the service's init script, the OpenWRT service
// management entry point.
type ScriptRestarter struct {
	// dir is the init script directory, /etc/init.d in production.
	dir string
}

// NewScriptRestarter returns a Restarter over the given init script
// directory; an empty dir selects /etc/init.d.
func NewScriptRestarter(dir string) *ScriptRestarter {
	if dir == "" {
		dir = "/etc/init.d"
	}

	return &ScriptRestarter{dir: dir}
}

// Restart runs `<dir>/<service> restart`.
func (r *ScriptRestarter) Restart(ctx context.Context, service string) error {
	script := filepath.Join(r.dir, service)
	if err := exec.CommandContext(ctx, script, "restart").Run(); err != nil {
		return fmt.Errorf("%s restart: %w", script, err)
	}

	return nil
}
