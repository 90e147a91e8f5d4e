package main

import "mqtt-panel/cmd"

func main() {
	cmd.Execute()
}
