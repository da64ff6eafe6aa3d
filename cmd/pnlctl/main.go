package main

import "pnl/internal/cmd"

func main() {
	cmd.Execute()
}
