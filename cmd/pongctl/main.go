package main

import "github.com/mcoot/pongmatch-go/internal/cli"

func main() {
	cli.Execute()
}
