package main

import (
	"os"

	"github.com/goibibo/mem0/apiserver"
)

func main() {
	if err := apiserver.Run(); err != nil {
		os.Exit(1)
	}
}
