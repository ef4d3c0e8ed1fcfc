//go:build windows

package mount

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// IsElevated reports whether the current process token is an elevated
// administrator token. Opening a raw volume device for reading requires
// it (spec §4.5 "elevation check").
func IsElevated() (bool, error) {
	var token windows.Token
	proc, err := windows.GetCurrentProcess()
	if err != nil {
		return false, fmt.Errorf("mount: GetCurrentProcess: %w", err)
	}
	if err := windows.OpenProcessToken(proc, windows.TOKEN_QUERY, &token); err != nil {
		return false, fmt.Errorf("mount: OpenProcessToken: %w", err)
	}
	defer token.Close()

	var elevation uint32
	var outLen uint32
	const tokenElevation = 20 // windows.TokenElevation
	buf := make([]byte, 4)
	if err := windows.GetTokenInformation(token, tokenElevation, &buf[0], uint32(len(buf)), &outLen); err != nil {
		return false, fmt.Errorf("mount: GetTokenInformation: %w", err)
	}
	elevation = uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	return elevation != 0, nil
}
