package entities

import "fmt"

// Remote identifies which review-service instance a change lives on.
type Remote string

const (
	// RemoteExternal is the public review host.
	RemoteExternal Remote = "external"
	// RemoteInternal is the internal review host; its references carry InternalPrefix.
	RemoteInternal Remote = "internal"

	// InternalPrefix marks a dependency reference as living on the internal remote.
	InternalPrefix = "*"
)

// ParseRemote converts a configuration value into a Remote.
func ParseRemote(value string) (Remote, error) {
	switch Remote(value) {
	case RemoteExternal, RemoteInternal:
		return Remote(value), nil
	default:
		return "", fmt.Errorf("unknown remote %q (expected %q or %q)", value, RemoteExternal, RemoteInternal)
	}
}

// Prefix returns the id prefix used for references on this remote.
func (r Remote) Prefix() string {
	if r == RemoteInternal {
		return InternalPrefix
	}
	return ""
}

// Remotes returns every known remote in a stable order.
func Remotes() []Remote {
	return []Remote{RemoteExternal, RemoteInternal}
}
