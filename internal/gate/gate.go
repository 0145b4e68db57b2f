// Package gate implements the passcode gate in front of every protected view.
//
// A visitor starts in [Unknown]. [Gate.Check] reads the access flag from a [FlagStore] and moves the
// visitor to [Granted] when the flag holds [FlagGranted], otherwise to [Denied]. There is no way back to Unknown.
//
// [Gate.Verify] compares an entered code with the configured passcode, ignoring case.
// A correct code is remembered by writing the flag; it is never cleared by the service.
// Attempts are not rate limited.
package gate

import (
	"crypto/subtle"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/gsotw/internal/shared"
)

const (
	FlagKey     = "gsotw_access"
	FlagGranted = "granted"

	// InvalidCodeMessage is shown after a wrong code. It does not say why the code was wrong.
	InvalidCodeMessage = "Invalid access code. Please try again."
)

// State is the gate state of one visitor.
type State int

const (
	Unknown State = iota
	Denied
	Granted
)

func (s State) String() string {
	switch s {
	case Denied:
		return "denied"
	case Granted:
		return "granted"
	default:
		return "unknown"
	}
}

// Gate checks and grants access against a single shared passcode.
type Gate struct {
	passcode string
	logger   *log.Logger
}

// New creates a [Gate]. An empty passcode means no code will ever be accepted.
func New(passcode string, logger *log.Logger) *Gate {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Gate{passcode: strings.TrimSpace(passcode), logger: logger}
}

// Check resolves the visitor's state from the stored flag.
//
// A store that cannot be read counts as no flag.
func (g *Gate) Check(store FlagStore) State {
	value, err := store.Get(FlagKey)
	if err != nil {
		g.logger.Warn("failed to read access flag", "error", err)
		return Denied
	}
	if value == FlagGranted {
		return Granted
	}
	return Denied
}

// Verify reports whether code matches the passcode, ignoring case and surrounding whitespace.
func (g *Gate) Verify(code string) bool {
	if g.passcode == "" {
		return false
	}
	entered := strings.ToUpper(strings.TrimSpace(code))
	expected := strings.ToUpper(g.passcode)
	return subtle.ConstantTimeCompare([]byte(entered), []byte(expected)) == 1
}

// Unlock verifies code and, on a match, persists the access flag in store.
//
// A wrong code returns [shared.ErrInvalidCode] and leaves the store untouched.
func (g *Gate) Unlock(store FlagStore, code string) error {
	if !g.Verify(code) {
		g.logger.Info("rejected access code")
		return shared.ErrInvalidCode
	}
	if err := store.Set(FlagKey, FlagGranted); err != nil {
		return fmt.Errorf("failed to persist access flag: %w", err)
	}
	g.logger.Info("access granted")
	return nil
}

// Visit tracks one visitor through the gate.
type Visit struct {
	state State
}

// State returns the current state; [Unknown] until [Visit.Resolve] runs.
func (v *Visit) State() State { return v.state }

// Resolve performs the single Unknown transition. Later calls return the settled state.
func (v *Visit) Resolve(g *Gate, store FlagStore) State {
	if v.state == Unknown {
		v.state = g.Check(store)
	}
	return v.state
}
