package main

import (
	"os"

	"github.com/avholm/bookdb/app"
)

func main() {
	os.Exit(app.CLI(os.Args[1:]))
}
