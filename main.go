package main

import "github.com/kyleking/gh-lazyqa/internal/cli"

func main() {
	cli.Execute()
}
