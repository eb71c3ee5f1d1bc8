package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeResult is the outcome of one upstream check.
type ProbeResult struct {
	Table   string `json:"table"`
	OK      bool   `json:"ok"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

type UpstreamStatus struct {
	Services ProbeResult `json:"services"`
	Users    ProbeResult `json:"users"`
}

// Healthy reports whether every probe succeeded.
func (s UpstreamStatus) Healthy() bool {
	return s.Services.OK && s.Users.OK
}

// ProbeUpstream reads one record from each table concurrently.
func (a *Application) ProbeUpstream(ctx context.Context) UpstreamStatus {
	status := UpstreamStatus{
		Services: ProbeResult{Table: a.appConfig.Airtable.ServicesTable},
		Users:    ProbeResult{Table: a.appConfig.Airtable.UsersTable},
	}
	var g errgroup.Group
	g.Go(func() error {
		probe(ctx, &status.Services, a.services.Probe)
		return nil
	})
	g.Go(func() error {
		probe(ctx, &status.Users, a.users.Probe)
		return nil
	})
	_ = g.Wait()
	return status
}

func probe(ctx context.Context, res *ProbeResult, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	res.Latency = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		res.Error = err.Error()
		return
	}
	res.OK = true
}
