package main

import "github.com/nautiluschat/nautilus/cmd"

func main() {
	cmd.Execute()
}
