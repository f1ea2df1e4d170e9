package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// InitializeSchedules starts all the cron jobs (currently just one)
func (serverHandler *ServerHandler) InitializeSchedules() {
	idleLimit := time.Duration(serverHandler.ServerConfig.SessionIdleLimit) * time.Minute
	sweepEvery := serverHandler.ServerConfig.SessionSweepEvery

	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(func() { serverHandler.closeIdleSessions(idleLimit) })
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", sweepEvery), sweepJob)
	Logger.Info("Adding idle session sweeper", "interval_minutes", sweepEvery, "idle_limit_minutes", serverHandler.ServerConfig.SessionIdleLimit)
	c.Start()
}
