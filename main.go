package main

import "studytimer/internal/cli"

func main() {
	cli.Execute()
}
