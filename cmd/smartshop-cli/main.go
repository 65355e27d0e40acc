package main

import "github.com/nfrund/smartshop/cmd/smartshop-cli/cmd"

func main() {
	cmd.Execute()
}
