// Package binding validates port binding requests for backends without a
// port forwarder: a binding may only expose a port under its own number.
package binding

import (
	"maps"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
)

// Table records resolved port bindings. Only Bind* mutate it; views are copies.
type Table struct {
	host   string
	target map[domain.TargetPortBinding]int
	local  map[domain.LocalPortBinding]domain.HostPort
}

// NewTable returns an empty table whose local bindings resolve on host.
// An empty host means domain.LoopbackHost.
func NewTable(host string) *Table {
	if host == "" {
		host = domain.LoopbackHost
	}
	return &Table{
		host:   host,
		target: make(map[domain.TargetPortBinding]int),
		local:  make(map[domain.LocalPortBinding]domain.HostPort),
	}
}

// BindTarget records b, which resolves to its target port.
func (t *Table) BindTarget(b domain.TargetPortBinding) (int, error) {
	if b.Local != 0 && b.Local != b.Target {
		return 0, &domain.BindingError{Kind: "target", Target: b.Target, Local: b.Local}
	}
	t.target[b] = b.Target
	return b.Target, nil
}

// BindLocal records b, which resolves to the table host and its local port.
func (t *Table) BindLocal(b domain.LocalPortBinding) (domain.HostPort, error) {
	if b.Target != 0 && b.Target != b.Local {
		return domain.HostPort{}, &domain.BindingError{Kind: "local", Target: b.Target, Local: b.Local}
	}
	hp := domain.HostPort{Host: t.host, Port: b.Local}
	t.local[b] = hp
	return hp, nil
}

// BindAll records every binding of req, stopping at the first rejection.
func (t *Table) BindAll(req domain.Request) error {
	for _, b := range req.TargetPortBindings {
		if _, err := t.BindTarget(b); err != nil {
			return err
		}
	}
	for _, b := range req.LocalPortBindings {
		if _, err := t.BindLocal(b); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) Target() map[domain.TargetPortBinding]int { return maps.Clone(t.target) }

func (t *Table) Local() map[domain.LocalPortBinding]domain.HostPort { return maps.Clone(t.local) }
