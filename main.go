package main

import "github.com/maximbilan/orchat/cmd"

func main() {
	cmd.Execute()
}
