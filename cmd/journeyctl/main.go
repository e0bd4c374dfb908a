package main

import "backend-journeylog/internal/cli"

func main() {
	cli.Execute()
}
