package main

import "github.com/upb/llm-cost-guard/cli"

func main() {
	cli.Execute()
}
