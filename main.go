package main

import (
	"duetfm/cmd"
)

func main() {
	cmd.Execute()
}
