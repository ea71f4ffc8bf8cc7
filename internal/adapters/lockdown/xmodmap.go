package lockdown

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

// Runner executes one external command.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs the command and folds its combined output into the error.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, out)
	}
	return nil
}

var (
	// Super_L and Super_R on a stock X keymap.
	disableSuperKeys = [][]string{
		{"-e", "clear mod4"},
		{"-e", "keycode 133="},
		{"-e", "keycode 134="},
	}
	restoreSuperKeys = [][]string{
		{"-e", "keycode 133=Super_L"},
		{"-e", "keycode 134=Super_R"},
		{"-e", "add mod4 = Super_L Super_R"},
	}
)

// XModmap unbinds the Super keys for the duration of a session. Every step is
// attempted even if an earlier one fails.
type XModmap struct {
	mu      sync.Mutex
	run     Runner
	engaged bool
	l       *zap.Logger
}

var _ ports.LockdownController = (*XModmap)(nil)

func NewXModmap(run Runner, l *zap.Logger) *XModmap {
	if run == nil {
		run = ExecRunner
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &XModmap{run: run, l: l}
}

func (x *XModmap) Engage(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.engaged {
		return nil
	}
	x.engaged = true
	err := x.apply(ctx, disableSuperKeys)
	if err == nil {
		x.l.Info("host super keys disabled")
	}
	return err
}

func (x *XModmap) Release(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.engaged {
		return nil
	}
	x.engaged = false
	err := x.apply(ctx, restoreSuperKeys)
	if err == nil {
		x.l.Info("host super keys restored")
	}
	return err
}

func (x *XModmap) apply(ctx context.Context, steps [][]string) error {
	var errs []error
	for _, args := range steps {
		if err := x.run(ctx, "xmodmap", args...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop is used where no host integration is available, e.g. headless test
// rigs or Wayland sessions.
type Noop struct{}

func (Noop) Engage(context.Context) error  { return nil }
func (Noop) Release(context.Context) error { return nil }

// New picks a controller by name: "xmodmap" or "none".
func New(mode string, l *zap.Logger) (ports.LockdownController, error) {
	switch mode {
	case "xmodmap":
		return NewXModmap(nil, l), nil
	case "none", "":
		return Noop{}, nil
	}
	return nil, fmt.Errorf("unknown lockdown mode %q", mode)
}
