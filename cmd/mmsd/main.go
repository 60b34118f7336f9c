package main

import (
	"github.com/openmms/mmsd/internal/cli"
)

func main() {
	cli.Execute()
}
