//go:build !linux || (cgo && x11)

package clipboard

import (
	"fmt"

	"golang.design/x/clipboard"
)

const systemAvailable = true

func initSystem() error {
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func writeSystem(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
