package main

import "github.com/barkeep-bar/barkeep/cmd/barkeepapi/cmd"

func main() {
	cmd.Execute()
}
