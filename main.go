package main

import "github.com/Azure/cmdpilot/cmd"

func main() {
	cmd.Execute()
}
