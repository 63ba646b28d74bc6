package main

import "klaviyo-sync/cmd"

func main() {
	cmd.Execute()
}
