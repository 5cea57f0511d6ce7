package main

import "github.com/aegis-identity/aegis/cmd"

func main() {
	cmd.Execute()
}
