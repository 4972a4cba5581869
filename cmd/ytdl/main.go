package main

import "studytools/cmd/ytdl/cmd"

func main() {
	cmd.Execute()
}
