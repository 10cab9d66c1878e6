package main

import "github.com/tetherwrt/tetherwrt/cmd/relay-update/cmd"

func main() {
	cmd.Execute()
}
