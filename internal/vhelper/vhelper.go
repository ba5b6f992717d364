// Package vhelper launches the VirtualHere USB-forwarding helper for
// sessions whose method is exactly "VirtualHere". Absence of the helper
// binary is never an error — it is simply not installed on every client
// machine.
package vhelper

import (
	"errors"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
)

const methodName = "VirtualHere"

// Applies reports whether method is the one this helper handles.
func Applies(method string) bool {
	return method == methodName
}

// Launch starts the VirtualHere client UI in the working directory, best
// effort. It never returns an error: a missing binary is logged at Debug,
// any other failure at Warn.
func Launch() {
	bin := "vhui32.exe"
	if runtime.GOARCH == "amd64" {
		bin = "vhui64.exe"
	}

	cmd := exec.Command(bin, "-cvhui.ini")
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			log.Debugf("vhelper: %s not present, skipping", bin)
			return
		}
		log.Warnf("vhelper: failed to launch %s: %v", bin, err)
		return
	}
	log.Debugf("vhelper: launched %s", bin)
}
