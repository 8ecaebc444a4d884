package main

import "order-tracking-service/cmd/detect/cmd"

func main() {
	cmd.Execute()
}
