package main

import "github.com/lepinkainen/editiondiff/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
