package main

import "github.com/frahmantamala/expense-assistant/cmd"

func main() {
	cmd.Execute()
}
