package main

import (
	"fmt"
	"runtime/debug"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
)

// Set with buildflag if built in pipeline and not using go install
var (
	BuildVersion  = ""
	BuildChecksum = ""
)

func printVersion() int {
	hasPrintedVersion := false
	if BuildVersion != "" {
		hasPrintedVersion = true
		fmt.Println("version: " + BuildVersion)
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		ancli.PrintErr("failed to read build info\n")
		return 1
	}
	if !hasPrintedVersion {
		fmt.Println("version: " + bi.Main.Version)
	}
	if BuildChecksum != "" {
		fmt.Println("checksum: " + BuildChecksum)
	}
	for _, dep := range bi.Deps {
		fmt.Printf("%s %s\n", dep.Path, dep.Version)
	}
	return 0
}
