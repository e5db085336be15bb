package common

import (
	"fmt"
	"strings"
)

const EventSourceNamespace = "dlclink"

// EventSource is the "<namespace>:<function>:<version>" tag contracts attach to their events.
type EventSource struct {
	Namespace string
	Function  string
	Version   string
}

func ParseEventSource(s string) (*EventSource, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed event source %q", s)
	}

	return &EventSource{Namespace: parts[0], Function: parts[1], Version: parts[2]}, nil
}

// Matches reports whether the source belongs to our namespace and the given contract version.
func (e *EventSource) Matches(version string) bool {
	return e.Namespace == EventSourceNamespace && e.Version == version
}

func (e *EventSource) String() string {
	return fmt.Sprintf("%s:%s:%s", e.Namespace, e.Function, e.Version)
}
