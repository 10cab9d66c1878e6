package main

import "github.com/tetherwrt/tetherwrt/cmd/relay-select/cmd"

func main() {
	cmd.Execute()
}
