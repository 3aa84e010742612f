package main

import (
	"gamestats/cmd/collector/cmd"
	"gamestats/lib/serviceutil"
)

func main() {
	cmd.ExecuteContext(serviceutil.SignalContext())
}
