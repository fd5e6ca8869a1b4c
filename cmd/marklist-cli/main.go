package main

import (
	"context"

	"marklist-backend/cmd/marklist-cli/commands"
	"marklist-backend/lib/serviceutil"
	"marklist-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "marklist-cli")
	telemetry.InstrumentPerfStats(context.Background())
	telemetry.InitSlog(false)
	commands.ExecuteContext(serviceutil.SignalContext())
}
