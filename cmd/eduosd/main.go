// Command eduosd boots the eduos kernel simulator.
package main

import "github.com/eduos/eduos/cmd"

func main() {
	cmd.Execute()
}
