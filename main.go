package main

import "github.com/RyanBlaney/echo-guard/cmd"

func main() {
	cmd.Execute()
}
