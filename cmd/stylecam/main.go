package main

import "github.com/bryanchriswhite/stylecam/cmd/stylecam/commands"

func main() {
	commands.Execute()
}
