package main

import "github.com/vietddude/unstuck/internal/cli"

func main() {
	cli.Execute()
}
