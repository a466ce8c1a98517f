package main

import (
	"github.com/scieloorg/ssm-go/cmd"
)

func main() {
	cmd.Execute()
}
