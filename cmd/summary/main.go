// Command summary loads the alarm, brigade, and topology sources once and
// writes the dashboard summary for one selection as JSON, XLSX, or PDF.
//
// Usage:
//
//	go run ./cmd/summary \
//	  -alarms data/alarms-splitted.csv \
//	  -brigades data/brigades-splitted.csv \
//	  -topology data/bezirke_95_topo.json \
//	  -month 3 -district Linz-Land -format xlsx -out march.xlsx
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/export"
	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/loader"
	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/source"
	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/topology"
	"github.com/couchcryptid/alarm-dashboard-service/internal/config"
	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
	"github.com/couchcryptid/alarm-dashboard-service/internal/observability"
	"github.com/couchcryptid/alarm-dashboard-service/internal/pipeline"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

type options struct {
	alarms         string
	brigades       string
	topology       string
	topologyObject string
	timezone       string
	timeout        time.Duration
	month          int
	district       string
	limitsFile     string
	format         string
	out            string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.alarms, "alarms", sharedcfg.EnvOrDefault("ALARMS_SOURCE", "data/alarms-splitted.csv"), "alarm table path or URL")
	flag.StringVar(&opts.brigades, "brigades", sharedcfg.EnvOrDefault("BRIGADES_SOURCE", "data/brigades-splitted.csv"), "brigade table path or URL")
	flag.StringVar(&opts.topology, "topology", sharedcfg.EnvOrDefault("TOPOLOGY_SOURCE", "data/bezirke_95_topo.json"), "district topology path or URL")
	flag.StringVar(&opts.topologyObject, "topology-object", sharedcfg.EnvOrDefault("TOPOLOGY_OBJECT", topology.DefaultObject), "TopoJSON object holding the districts")
	flag.StringVar(&opts.timezone, "timezone", sharedcfg.EnvOrDefault("TIMEZONE", domain.DefaultTimezone), "zone of the exported timestamps")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for remote sources")
	flag.IntVar(&opts.month, "month", 1, "month to summarize (1-12)")
	flag.StringVar(&opts.district, "district", "", "district to summarize; empty for all")
	flag.StringVar(&opts.limitsFile, "config", os.Getenv("DASHBOARD_CONFIG"), "YAML file overriding the chart limits")
	flag.StringVar(&opts.format, "format", "json", "output format: json, xlsx, or pdf")
	flag.StringVar(&opts.out, "out", "", "output file; stdout when empty")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.month < 1 || opts.month > 12 {
		flag.Usage()
		return fmt.Errorf("invalid -month %d: must be 1-12", opts.month)
	}
	switch opts.format {
	case "json", "xlsx", "pdf":
	default:
		return fmt.Errorf("invalid -format %q: must be json, xlsx, or pdf", opts.format)
	}

	cal, err := domain.NewCalendar(domain.DefaultLayout, opts.timezone)
	if err != nil {
		return err
	}
	limits, err := config.LoadLimits(opts.limitsFile)
	if err != nil {
		return err
	}

	// Diagnostics go to stderr so stdout carries only the summary.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewUnregisteredMetrics()

	sources := loader.New(source.NewOpener(opts.timeout, logger), loader.Locations{
		Topology:       opts.topology,
		TopologyObject: opts.topologyObject,
		Alarms:         opts.alarms,
		Brigades:       opts.brigades,
	}, cal, logger, metrics)

	p := pipeline.New(sources, logger, metrics, pipeline.Settings{
		InitialMonth: opts.month,
		Limits:       pipeline.Limits(limits),
	})
	if err := p.Load(ctx); err != nil {
		return err
	}

	summary, err := p.SetDistrict(ctx, opts.district)
	if err != nil {
		return err
	}

	if err := output(opts.out, summary, opts.format); err != nil {
		return err
	}
	log.Printf("%s %02d/%s: %d alarms, %d brigade calls", opts.format, opts.month, summary.DistrictLabel,
		len(summary.FilteredAlarms), summary.BrigadeCount)
	return nil
}

// output writes the summary to path, or to stdout when path is empty. The
// file is closed before returning so a failed flush is reported.
func output(path string, summary pipeline.Summary, format string) (err error) {
	if path == "" {
		return write(os.Stdout, summary, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return write(f, summary, format)
}

func write(w io.Writer, summary pipeline.Summary, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "xlsx":
		data, err = export.BuildSummaryXLSX(summary)
	case "pdf":
		data, err = export.BuildSummaryPDF(summary)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
