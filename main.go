package main

import "github.com/naka-gawa/prcounter/cmd"

func main() {
	cmd.Execute()
}
