package main

import "github.com/olivier-w/plyr/cmd"

func main() {
	cmd.Execute()
}
