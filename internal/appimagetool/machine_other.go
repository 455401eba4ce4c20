//go:build !linux

package appimagetool

// Machine returns the machine name matching the compiled architecture.
func Machine() string {
	return machineFromArch()
}
