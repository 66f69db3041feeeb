package main

import "github.com/citymesh/message-gateway/cmd"

func main() {
	cmd.Execute()
}
