package main

import "github.com/picrate/picrate/cmd"

func main() {
	cmd.Execute()
}
