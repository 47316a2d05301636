package main

import "github.com/rojanatorn/apiserver/cmd"

func main() {
	cmd.Execute()
}
