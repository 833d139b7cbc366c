package main

import "github.com/doesntneedname/activity-bot/cli"

func main() {
	cli.Execute()
}
