package main

import "github.com/bryan-buckman/lolsync/internal/cli"

func main() {
	cli.Execute()
}
