package main

import "github.com/Mohsinsiddi/w3auction/cmd"

func main() {
	cmd.Execute()
}
