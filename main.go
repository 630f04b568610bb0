package main

import "github.com/kuziva-m/mvp-sub001/cmd"

func main() {
	cmd.Init()
}
