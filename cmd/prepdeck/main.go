package main

import (
	"prepdeck/cmd/cmd"
)

func main() {
	cmd.Execute()
}
