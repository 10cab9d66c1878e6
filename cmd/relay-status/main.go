package main

import "github.com/tetherwrt/tetherwrt/cmd/relay-status/cmd"

func main() {
	cmd.Execute()
}
