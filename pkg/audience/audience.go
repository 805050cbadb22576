// Package audience names the three QQ conversation kinds a message can come
// from and maps each to its user table.
package audience

import (
	"fmt"
	"strings"
)

type Kind string

const (
	Channel Kind = "channel"
	Group   Kind = "group"
	// Direct is QQ's C2C (one-to-one) conversation.
	Direct Kind = "c2c"
)

// All returns every kind in table order.
func All() []Kind {
	return []Kind{Channel, Group, Direct}
}

func Parse(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "channel", "guild":
		return Channel, nil
	case "group":
		return Group, nil
	case "c2c", "direct", "private":
		return Direct, nil
	}
	return "", fmt.Errorf("unknown audience %q", s)
}

func (k Kind) Valid() bool {
	switch k {
	case Channel, Group, Direct:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Table returns the name of the user table for k.
func (k Kind) Table() string {
	return string(k) + "_table"
}

// ContextColumn returns the parent-context column of k's table, or "" for
// Direct, which has none.
func (k Kind) ContextColumn() string {
	switch k {
	case Channel:
		return "channel_id"
	case Group:
		return "group_id"
	}
	return ""
}
