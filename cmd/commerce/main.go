package main

import (
	"os"

	"github.com/birbparty/birb-commerce/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
