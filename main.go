package main

import "github.com/naka-gawa/github-trending/cmd"

func main() {
	cmd.Execute()
}
