package main

import (
	"os"

	"github.com/deploymenttheory/hms-setup/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
