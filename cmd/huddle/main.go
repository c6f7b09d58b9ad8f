package main

import "github.com/zfogg/huddle/internal/cli"

func main() {
	cli.Execute()
}
