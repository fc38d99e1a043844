//go:build linux && !(cgo && x11)

package clipboard

import "fmt"

// The X11 clipboard needs cgo, the X11 headers and the x11 build tag.
const systemAvailable = false

func initSystem() error {
	return fmt.Errorf("%w: build with cgo and -tags x11 for the X11 clipboard", ErrUnavailable)
}

func writeSystem(string) error {
	return initSystem()
}
