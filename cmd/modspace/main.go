// Command modspace serves and browses the modspace entities.
package main

import "github.com/marshallshelly/modspace/cmd/modspace/commands"

func main() {
	commands.Execute()
}
