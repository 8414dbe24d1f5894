package main

import "github.com/socialnet/apiserver/cmd"

func main() {
	cmd.Execute()
}
