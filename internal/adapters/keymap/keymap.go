// Package keymap turns physical kiosk key presses into session events.
package keymap

import (
	"fmt"
	"strings"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

// Key is one key press. Name is an X keysym such as "Return", "space" or "q".
type Key struct {
	Name  string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Alt   bool   `json:"alt"`
	Shift bool   `json:"shift"`
	Super bool   `json:"super"`
}

func (k Key) String() string {
	var b strings.Builder
	for _, m := range []struct {
		on   bool
		name string
	}{{k.Ctrl, "Ctrl"}, {k.Alt, "Alt"}, {k.Shift, "Shift"}, {k.Super, "Super"}} {
		if m.on {
			b.WriteString(m.name)
			b.WriteByte('+')
		}
	}
	b.WriteString(k.Name)
	return b.String()
}

// Translate maps a key press onto an event. Keys with no kiosk meaning come
// back as host_shortcut so the session swallows them.
func Translate(k Key) domain.Event {
	name := strings.ToLower(k.Name)
	switch {
	case k.Super || name == "super_l" || name == "super_r" || name == "escape":
		return hostShortcut()
	case k.Ctrl && k.Alt:
		return hostShortcut()
	case k.Alt && name == "tab":
		return hostShortcut()
	case k.Ctrl && name == "q":
		return domain.Event{Type: domain.EventEmergencyExit}
	case k.Ctrl || k.Alt:
		return hostShortcut()
	}

	switch name {
	case "return", "kp_enter":
		return domain.Event{Type: domain.EventConfirm}
	case "space":
		return domain.Event{Type: domain.EventNextBallot}
	case "tab":
		return domain.Event{Type: domain.EventUndo}
	}
	return hostShortcut()
}

func hostShortcut() domain.Event {
	return domain.Event{Type: domain.EventHostShortcut}
}

var modifiers = map[string]func(*Key){
	"ctrl":    func(k *Key) { k.Ctrl = true },
	"control": func(k *Key) { k.Ctrl = true },
	"alt":     func(k *Key) { k.Alt = true },
	"shift":   func(k *Key) { k.Shift = true },
	"super":   func(k *Key) { k.Super = true },
}

// ParseChord reads chords written like "Ctrl+Alt+t" or "Return".
func ParseChord(s string) (Key, error) {
	parts := strings.Split(strings.TrimSpace(s), "+")
	var k Key
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Key{}, fmt.Errorf("invalid key chord %q", s)
		}
		if i == len(parts)-1 {
			k.Name = part
			break
		}
		set, ok := modifiers[strings.ToLower(part)]
		if !ok {
			return Key{}, fmt.Errorf("unknown modifier %q in %q", part, s)
		}
		set(&k)
	}
	return k, nil
}
