package main

import (
	"coursewatch/cmd/coursewatch/commands"
	"coursewatch/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
