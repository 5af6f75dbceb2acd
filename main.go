package main

import "github.com/reunite-project/reunite/cmd"

func main() {
	cmd.Execute()
}
