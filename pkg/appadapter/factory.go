package appadapter

import "fmt"

// Mode identifies a host environment an adapter can integrate with.
type Mode int

const (
	// ModeHeadless runs with no display; the adapter owns its own main
	// thread event loop.
	ModeHeadless Mode = iota
)

func (m Mode) String() string {
	switch m {
	case ModeHeadless:
		return "headless"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// New creates the adapter for the given host mode. Unknown modes are a
// build/configuration defect and panic.
func New(mode Mode, graphics GraphicsServer, opts ...Option) AppAdapter {
	switch mode {
	case ModeHeadless:
		return NewHeadless(graphics, opts...)
	default:
		panic(fmt.Sprintf("appadapter: no adapter for mode %s", mode))
	}
}
