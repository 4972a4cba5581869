package main

import "studytools/cmd/moyenne/cmd"

func main() {
	cmd.Execute()
}
