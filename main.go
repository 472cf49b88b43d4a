package main

import "github.com/dobromatch/dobromatch/cmd"

func main() {
	cmd.Execute()
}
