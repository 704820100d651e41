package main

import "github.com/EO-DataHub/eodhp-agent-runner/cmd"

func main() {
	cmd.Execute()
}
