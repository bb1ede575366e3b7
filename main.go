package main

import "github.com/emailbot/gmail-mcp/cmd"

var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
