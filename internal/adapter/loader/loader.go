// Package loader reads the topology, alarm, and brigade sources for the
// pipeline's initial load.
package loader

import (
	"context"
	"io"
	"log/slog"

	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/dsv"
	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/topology"
	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
	"github.com/couchcryptid/alarm-dashboard-service/internal/observability"
)

// Opener resolves a source location to a stream.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Locations names where each source lives.
type Locations struct {
	Topology       string
	TopologyObject string
	Alarms         string
	Brigades       string
}

// Loader decodes the three sources. It satisfies pipeline.SourceLoader.
type Loader struct {
	opener    Opener
	locations Locations
	calendar  *domain.Calendar
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Loader that parses timestamps with cal.
func New(opener Opener, locations Locations, cal *domain.Calendar, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		opener:    opener,
		locations: locations,
		calendar:  cal,
		logger:    logger,
		metrics:   metrics,
	}
}

// LoadTopology reads the district shapes and returns their names.
func (l *Loader) LoadTopology(ctx context.Context) (domain.Topology, error) {
	rc, err := l.opener.Open(ctx, l.locations.Topology)
	if err != nil {
		return domain.Topology{}, err
	}
	defer rc.Close()

	topo, err := topology.Decode(rc, l.locations.TopologyObject)
	if err != nil {
		return domain.Topology{}, err
	}
	l.logger.Info("topology loaded", "location", l.locations.Topology, "districts", topo.Len())
	return topo, nil
}

// LoadAlarms reads the alarm export.
func (l *Loader) LoadAlarms(ctx context.Context) ([]domain.Alarm, error) {
	rc, err := l.opener.Open(ctx, l.locations.Alarms)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	alarms, stats, err := dsv.DecodeAlarms(rc, l.calendar)
	if err != nil {
		return nil, err
	}
	l.report("alarms", l.locations.Alarms, stats)
	return alarms, nil
}

// LoadBrigades reads the brigade export.
func (l *Loader) LoadBrigades(ctx context.Context) ([]domain.Brigade, error) {
	rc, err := l.opener.Open(ctx, l.locations.Brigades)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	brigades, stats, err := dsv.DecodeBrigades(rc, l.calendar)
	if err != nil {
		return nil, err
	}
	l.report("brigades", l.locations.Brigades, stats)
	return brigades, nil
}

func (l *Loader) report(source, location string, stats dsv.Stats) {
	if stats.MalformedTimestamps > 0 {
		l.metrics.MalformedTimestamps.WithLabelValues(source).Add(float64(stats.MalformedTimestamps))
		l.logger.Warn("rows with malformed timestamps",
			"source", source,
			"rows", stats.Rows,
			"malformed", stats.MalformedTimestamps,
		)
	}
	l.logger.Info("source loaded", "source", source, "location", location, "rows", stats.Rows)
}
