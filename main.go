package main

import "github.com/notargets/barytrack/cmd"

func main() {
	cmd.Execute()
}
