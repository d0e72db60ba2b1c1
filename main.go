package main

import "github.com/moyu-x/dataset-dedup/cmd"

func main() {
	cmd.Execute()
}
