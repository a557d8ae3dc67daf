package resp

import (
	"fmt"
	"strings"
)

// ParseCommand splits a request into a lower-cased command name and its
// arguments.
//
// An array's first element names the command. A bare status line is read as
// a command with no arguments, which is how a "+PONG" reply becomes "pong".
func ParseCommand(m Message) (string, []Message, error) {
	switch m.Kind {
	case KindArray:
		if len(m.Items) == 0 {
			return "", nil, fmt.Errorf("%w: empty command", ErrProtocol)
		}
		name, ok := m.Items[0].Text()
		if !ok || m.Items[0].Kind == KindError {
			return "", nil, fmt.Errorf("%w: command name must be a string, got %s", ErrProtocol, m.Items[0].Kind)
		}
		return strings.ToLower(name), m.Items[1:], nil
	case KindSimple:
		return strings.ToLower(m.Str), nil, nil
	default:
		return "", nil, fmt.Errorf("%w: unexpected %s message as command", ErrProtocol, m.Kind)
	}
}
