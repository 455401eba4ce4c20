package main

import (
	"github.com/oshokin/windsurf-appimage/cmd/windsurf-appimage/cmd"
)

func main() {
	cmd.Execute()
}
