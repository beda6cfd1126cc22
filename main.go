package main

import "cornell/cmd"

func main() {
	cmd.Execute()
}
