// Package batch computes the minimal set of contiguous Modbus
// register-range reads that cover a set of requested addresses under
// the protocol's 125-register-per-request ceiling and a configurable
// merge-gap heuristic.
package batch

import "sort"

// MaxRegistersPerRequest is Modbus's hard ceiling on one holding-register
// read (function code 0x03).
const MaxRegistersPerRequest = 125

// DefaultMaxGap is the default merge-gap heuristic: adjacent addresses
// separated by at most this many unread registers are folded into the
// same range rather than split into a second request.
const DefaultMaxGap = 10

// RegisterRange is one contiguous Modbus holding-register read.
type RegisterRange struct {
	StartAddress uint16
	Count        uint16
}

// clampCount enforces RegisterRange's count invariant: 1..125.
func clampCount(count int) uint16 {
	if count < 1 {
		return 1
	}
	if count > MaxRegistersPerRequest {
		return MaxRegistersPerRequest
	}
	return uint16(count)
}

// EndAddress returns start + count - 1, saturating at 0xFFFF instead
// of wrapping past the top of the address space.
func (r RegisterRange) EndAddress() uint16 {
	end := uint32(r.StartAddress) + uint32(r.Count) - 1
	if end > 0xFFFF {
		return 0xFFFF
	}
	return uint16(end)
}

// Contains reports whether address a falls within [start, end].
func (r RegisterRange) Contains(a uint16) bool {
	return a >= r.StartAddress && a <= r.EndAddress()
}

// OffsetOf returns a's position within the range, or -1 if a is outside it.
func (r RegisterRange) OffsetOf(a uint16) int {
	if !r.Contains(a) {
		return -1
	}
	return int(a) - int(r.StartAddress)
}

// Options configures Batch beyond the protocol defaults.
type Options struct {
	MaxRegistersPerRequest int // default 125, hard-capped at 125
	MaxGap                 int // default 10
}

// Option mutates an Options value.
type Option func(*Options)

// WithMaxGap overrides the merge-gap heuristic.
func WithMaxGap(gap int) Option {
	return func(o *Options) { o.MaxGap = gap }
}

// WithMaxRegistersPerRequest overrides the per-request ceiling;
// values above 125 are clamped to 125 on construction.
func WithMaxRegistersPerRequest(n int) Option {
	return func(o *Options) { o.MaxRegistersPerRequest = n }
}

func defaultOptions() Options {
	return Options{MaxRegistersPerRequest: MaxRegistersPerRequest, MaxGap: DefaultMaxGap}
}

// Batch computes the ordered, minimal-count set of register ranges
// covering every address in addrs. Input is deduplicated and sorted
// before batching; adjacent addresses (and those within MaxGap of the
// current range's end) merge into one range, provided doing so would
// not exceed the per-request ceiling.
func Batch(addrs []uint16, opts ...Option) []RegisterRange {
	if len(addrs) == 0 {
		return nil
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ceiling := o.MaxRegistersPerRequest
	if ceiling <= 0 || ceiling > MaxRegistersPerRequest {
		ceiling = MaxRegistersPerRequest
	}
	maxGap := o.MaxGap
	if maxGap < 0 {
		maxGap = 0
	}

	sorted := dedupSort(addrs)

	var ranges []RegisterRange
	start := sorted[0]
	end := sorted[0]

	flush := func() {
		ranges = append(ranges, RegisterRange{StartAddress: start, Count: clampCount(int(end) - int(start) + 1)})
	}

	for _, a := range sorted[1:] {
		gap := int(a) - int(end) - 1
		proposedCount := int(a) - int(start) + 1
		if gap <= maxGap && proposedCount <= ceiling {
			end = a
			continue
		}
		flush()
		start, end = a, a
	}
	flush()

	return ranges
}

func dedupSort(addrs []uint16) []uint16 {
	seen := make(map[uint16]bool, len(addrs))
	out := make([]uint16, 0, len(addrs))
	for _, a := range addrs {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
