package main

import (
	"os"

	"github.com/arloliu/structarray/cmd/structarray/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
