package main

import "github/keyless/go-connector/cmd"

func main() {
	cmd.Execute()
}
