package main

import "messaging-service/internal/cli"

func main() {
	cli.Execute()
}
