package main

import "github.com/dvloznov/agricole-sync/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
