package main

import "github.com/subsort/subsort/cmd"

func main() {
	cmd.Execute()
}
