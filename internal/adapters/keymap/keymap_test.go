package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		chord string
		want  domain.EventType
	}{
		{"Return", domain.EventConfirm},
		{"KP_Enter", domain.EventConfirm},
		{"space", domain.EventNextBallot},
		{"Tab", domain.EventUndo},
		{"Ctrl+q", domain.EventEmergencyExit},
		{"Ctrl+Q", domain.EventEmergencyExit},
		{"Alt+Tab", domain.EventHostShortcut},
		{"Ctrl+Alt+t", domain.EventHostShortcut},
		{"Escape", domain.EventHostShortcut},
		{"Super_L", domain.EventHostShortcut},
		{"Super+d", domain.EventHostShortcut},
		{"Ctrl+c", domain.EventHostShortcut},
		{"a", domain.EventHostShortcut},
		{"F4", domain.EventHostShortcut},
	}
	for _, tt := range tests {
		t.Run(tt.chord, func(t *testing.T) {
			k, err := ParseChord(tt.chord)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Translate(k).Type)
		})
	}
}

func TestParseChord(t *testing.T) {
	k, err := ParseChord(" Ctrl + Alt + t ")
	require.NoError(t, err)
	assert.Equal(t, Key{Name: "t", Ctrl: true, Alt: true}, k)
	assert.Equal(t, "Ctrl+Alt+t", k.String())

	_, err = ParseChord("Hyper+x")
	assert.Error(t, err)

	_, err = ParseChord("Ctrl+")
	assert.Error(t, err)
}
