package appimagetool

import (
	"golang.org/x/sys/unix"
)

// Machine returns the kernel's machine name, e.g. x86_64 or aarch64.
func Machine() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return machineFromArch()
	}

	if machine := unix.ByteSliceToString(uts.Machine[:]); machine != "" {
		return machine
	}

	return machineFromArch()
}
