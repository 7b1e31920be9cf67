package main

import (
	"os"

	"github.com/staffgate/staffgate/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
