package main

import "github.com/woodshedapp/woodshed/cmd/woodshed/cmd"

func main() {
	cmd.Execute()
}
