package main

import (
	"fmt"

	"github.com/corebridge/corebridge/internal/version"
)

// VersionCmd prints version info.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("corebridge " + version.String())
	return nil
}
