package main

import (
	"github.com/tably-dev/tably/client/cmd"
)

func main() {
	cmd.Execute()
}
