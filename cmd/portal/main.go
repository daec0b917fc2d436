package main

import "github.com/jrsteele09/restaurant-portal/cmd/portal/cmd"

func main() {
	cmd.Execute()
}
