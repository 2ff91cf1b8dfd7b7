// ssnodectl is an offline configuration tool: it generates node identities
// and validates ssnoded cluster configuration files.
package main

import "github.com/ssnode/cluster/cmd/ssnodectl/commands"

func main() {
	commands.Execute()
}
