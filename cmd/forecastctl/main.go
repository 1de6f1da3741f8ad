package main

import "github.com/tableturn/forecaster/cmd/forecastctl/commands"

func main() {
	commands.Execute()
}
