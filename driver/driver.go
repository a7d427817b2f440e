// Package driver orchestrates the read pipeline: resolve groups,
// collect sensor items, batch registers, invoke the transport reader,
// assemble the register map, and build a SolarStatus (spec.md §4.6).
package driver

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/devskill-org/solarstatus/batch"
	"github.com/devskill-org/solarstatus/errs"
	"github.com/devskill-org/solarstatus/profile"
	"github.com/devskill-org/solarstatus/status"
)

// defaultGroups is the basic subsystem set used when a caller requests
// none explicitly (spec.md §4.6 step 1).
var defaultGroups = []string{"battery", "grid", "pv", "load"}

// Reader is the abstract transport boundary: one holding-register
// read of count registers starting at start. Function-code selection
// is a profile.RequestOverride concern the orchestrator does not
// currently act on (spec.md §9 open question); every read goes
// through this single holding-registers method.
type Reader interface {
	ReadRegisters(ctx context.Context, start, count uint16) ([]uint16, error)
}

// ReadStats carries the optional observability counters spec.md §4.6
// asks for: duration, registers read, batch count, and a per-kind
// error tally. It never flows into SolarStatus.
type ReadStats struct {
	Duration      time.Duration
	RegistersRead int
	BatchCount    int
	ErrorsByKind  map[errs.DriverKind]int
}

func (s *ReadStats) recordError(kind errs.DriverKind) {
	if s.ErrorsByKind == nil {
		s.ErrorsByKind = make(map[errs.DriverKind]int)
	}
	s.ErrorsByKind[kind]++
}

// Options configures the orchestrator's batching behavior.
type Options struct {
	MaxRegistersPerRequest int
	MaxGap                 int
	Logger                 *log.Logger
}

// Option mutates Options; see WithMaxGap, WithMaxRegistersPerRequest, WithLogger.
type Option func(*Options)

func WithMaxGap(gap int) Option { return func(o *Options) { o.MaxGap = gap } }

func WithMaxRegistersPerRequest(n int) Option {
	return func(o *Options) { o.MaxRegistersPerRequest = n }
}

func WithLogger(logger *log.Logger) Option { return func(o *Options) { o.Logger = logger } }

// Orchestrator wires a profile definition to a transport Reader and
// runs the collect -> batch -> read -> assemble -> build pipeline.
type Orchestrator struct {
	def    *profile.InverterDefinition
	reader Reader
	opts   Options
	logger *log.Logger
}

// New builds an Orchestrator for a single device profile and reader.
func New(def *profile.InverterDefinition, reader Reader, opts ...Option) *Orchestrator {
	o := Options{MaxRegistersPerRequest: batch.MaxRegistersPerRequest, MaxGap: batch.DefaultMaxGap}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{def: def, reader: reader, opts: o, logger: logger}
}

// Read runs one full pipeline pass and returns the assembled status
// alongside observability stats. requestedGroups empty means the
// default basic set.
func (o *Orchestrator) Read(ctx context.Context, requestedGroups []string) (*status.SolarStatus, ReadStats, error) {
	start := time.Now()
	stats := ReadStats{}

	groups := requestedGroups
	if len(groups) == 0 {
		groups = defaultGroups
	}

	items := status.ItemsForSubsystems(o.def, groups)
	if len(items) == 0 {
		err := errs.NoSensorsForGroupsError(groups)
		stats.recordError(err.Kind)
		stats.Duration = time.Since(start)
		return nil, stats, err
	}

	addrs := uniqueRegisterAddresses(items)
	ranges := batch.Batch(addrs, batch.WithMaxGap(o.opts.MaxGap), batch.WithMaxRegistersPerRequest(o.opts.MaxRegistersPerRequest))
	stats.BatchCount = len(ranges)

	registers := make(status.Registers)
	for _, r := range ranges {
		o.logger.Printf("driver: reading %d registers at %d", r.Count, r.StartAddress)
		values, err := o.reader.ReadRegisters(ctx, r.StartAddress, r.Count)
		if err != nil {
			derr := classifyTransportError(ctx, err)
			stats.recordError(derr.Kind)
			stats.Duration = time.Since(start)
			return nil, stats, derr
		}
		if len(values) != int(r.Count) {
			derr := errs.WrapDriverError(errs.InvalidResponse, fmt.Errorf("got %d registers, want %d", len(values), r.Count))
			stats.recordError(derr.Kind)
			stats.Duration = time.Since(start)
			return nil, stats, derr
		}
		for i, v := range values {
			registers[r.StartAddress+uint16(i)] = v
		}
		stats.RegistersRead += len(values)
	}

	result := status.Build(registers, o.def, groups)
	stats.Duration = time.Since(start)
	o.logger.Printf("driver: read complete in %v (%d registers, %d batches)", stats.Duration, stats.RegistersRead, stats.BatchCount)
	return result, stats, nil
}

// classifyTransportError maps a transport failure into the driver
// taxonomy (spec.md §7): a canceled/expired context is timeout,
// anything else observed on the wire is a communication error.
func classifyTransportError(ctx context.Context, err error) *errs.DriverError {
	if ctx.Err() != nil {
		return errs.WrapDriverError(errs.Timeout, err)
	}
	return errs.WrapDriverError(errs.CommunicationError, err)
}

// uniqueRegisterAddresses flattens every referenced register across
// every item (numeric, string, version, datetime, bit alarms, and
// composite sub-sensors), deduplication is left to batch.Batch.
func uniqueRegisterAddresses(items []profile.SensorItem) []uint16 {
	var addrs []uint16
	for _, it := range items {
		addrs = append(addrs, it.Registers...)
		for _, sub := range it.Sensors {
			addrs = append(addrs, sub.Registers...)
		}
	}
	return addrs
}
