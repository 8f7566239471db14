package main

import "github.com/pmarks/tunefold/cmd"

func main() {
	cmd.Execute()
}
