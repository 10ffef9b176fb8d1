package main

import "github.com/Tiliavir/tick-tracker/cmd"

func main() {
	cmd.Execute()
}
