package main

import "roteiro/internal/cli"

func main() {
	cli.Execute()
}
