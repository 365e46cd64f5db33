package main

import (
	"clipwave/cmd"
)

func main() {
	cmd.Execute()
}
