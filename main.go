package main

import "github.com/Siddhant-K-code/recourse/cmd"

func main() {
	cmd.Execute()
}
