//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Report builds the CLI and runs a report for target with the default
// section set, e.g. mage report "Acme Corp".
func Report(target string) error {
	mg.Deps(Build)
	return sh.RunV("./"+binDir+"/"+binName, "report", target, "--markdown")
}

// Sections builds the CLI and prints the canonical section set as YAML.
func Sections() error {
	mg.Deps(Build)
	return sh.RunV("./"+binDir+"/"+binName, "sections", "--yaml")
}
