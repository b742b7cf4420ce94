package main

import (
	"os"

	"classconnect-scraper/commands"
)

func main() {
	os.Exit(commands.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
