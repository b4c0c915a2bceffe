package main

import "github.com/jmporch/musings/cmd/blogctl/cmd"

func main() {
	cmd.Execute()
}
