package main

import (
	"github.com/ezgisubasi/multimodal-research-agent/internal/cli"
)

func main() {
	cli.Execute()
}
