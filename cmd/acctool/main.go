package main

import "github.com/mcoot/acctstore/internal/cli"

func main() {
	cli.Execute()
}
