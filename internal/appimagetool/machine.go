package appimagetool

import (
	"runtime"
)

// archMachines maps Go architectures to the names used in tool release assets.
var archMachines = map[string]string{
	"amd64": "x86_64",
	"arm64": "aarch64",
	"386":   "i686",
	"arm":   "armhf",
}

func machineFromArch() string {
	if machine, ok := archMachines[runtime.GOARCH]; ok {
		return machine
	}

	return runtime.GOARCH
}
