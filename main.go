package main

import "github.com/ninja0404/meme-sniper/cmd"

func main() {
	cmd.Execute()
}
