package document

import (
	"errors"
	"fmt"
)

// Kind is the closed set of document kinds that have a handler.
type Kind string

const (
	KindText Kind = "text"
	KindCode Kind = "code"
)

var ErrUnknownKind = errors.New("unknown document kind")

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindText, KindCode}
}

func ParseKind(raw string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}
