package main

import "github.com/KaramelBytes/appforge-cli/cmd"

func main() {
	cmd.Execute()
}
