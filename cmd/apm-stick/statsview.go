package main

import (
	"context"
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const statsviewPath = "/debug/statsview"

// runStatsview serves runtime charts on addr until ctx is done.
func runStatsview(ctx context.Context, addr string) error {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()

	go mgr.Start()
	slog.Info("statsview: listening", "url", "http://"+addr+statsviewPath)

	<-ctx.Done()
	mgr.Stop()
	return nil
}
