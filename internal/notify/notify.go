// Package notify shows desktop notifications for notices the user might miss
// while the screen is not in front.
package notify

import (
	"github.com/gen2brain/beeep"
)

const maxRunes = 120

type Notifier struct {
	enabled bool
	send    func(title, message, icon string) error
}

func New(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
	}
}

func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled = enabled
}

func (n *Notifier) Notify(title, message string) error {
	if !n.enabled {
		return nil
	}
	return n.send(title, truncate(message), "")
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
