package main

import (
	"fmt"
	"os"

	"github.com/nateberkopec/tasknotifier/cmd"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	err := cmd.Execute(os.Args, cmd.BuildArgs{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tasknotifier: %s\n", err.Error())
		os.Exit(1)
	}
}
