package main

import "github.com/Manu343726/dwarfcore/cmd"

func main() {
	cmd.Execute()
}
