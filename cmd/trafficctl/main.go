package main

import "github.com/DoyleJ11/traffic-light-server/cmd/trafficctl/cmd"

func main() {
	cmd.Execute()
}
