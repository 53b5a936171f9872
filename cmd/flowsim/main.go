// Command flowsim runs replicated simulations of a multi-server queue.
package main

import "github.com/sarchlab/flowsim/cmd"

func main() {
	cmd.Execute()
}
