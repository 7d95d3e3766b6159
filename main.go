package main

import "github.com/Mohsinsiddi/h2o/cmd"

func main() {
	cmd.Execute()
}
