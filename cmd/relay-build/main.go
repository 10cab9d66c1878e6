package main

import "github.com/tetherwrt/tetherwrt/cmd/relay-build/cmd"

func main() {
	cmd.Execute()
}
