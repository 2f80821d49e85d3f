package main

import "github.com/androidarduino/vrdb/cmd"

func main() {
	cmd.Execute()
}
