package main

import (
	"log"
	"os"

	"note-drop/pkg/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Printf("notedrop: %v", err)
		os.Exit(1)
	}
}
