package main

import "github.com/jmehdipour/voidview/cmd"

func main() {
	cmd.Execute()
}
