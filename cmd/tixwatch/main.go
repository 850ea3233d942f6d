package main

import (
	"context"

	"tixwatch-backend/cmd/tixwatch/commands"
	"tixwatch-backend/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
