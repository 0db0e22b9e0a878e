package main

import "github.com/framecast/framecast/cmd"

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "0.1.0-dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
