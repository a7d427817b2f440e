package convert

import (
	"testing"

	"github.com/devskill-org/solarstatus/profile"
)

func withDefaults(item profile.SensorItem) profile.SensorItem {
	if item.Scale == 0 {
		item.Scale = 1.0
	}
	item.Version = profile.DefaultVersionOptions()
	return item
}

func TestDecode_IdentityAtDefaults(t *testing.T) {
	item := withDefaults(profile.SensorItem{Rule: profile.RuleU16})
	got, err := Decode(item, []uint16{4242})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4242 {
		t.Errorf("got %v, want 4242", got)
	}
}

func TestDecode_SignMagnitude16RoundTrip(t *testing.T) {
	item := withDefaults(profile.SensorItem{Rule: profile.RuleU16, Signed: true, Magnitude: true})
	for v := 0; v <= 0x7FFF; v += 1000 {
		pos, err := Decode(item, []uint16{uint16(v)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pos != float64(v) {
			t.Errorf("positive encoding %#x: got %v, want %v", v, pos, v)
		}
		neg, err := Decode(item, []uint16{uint16(0x8000 | v)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if neg != -float64(v) {
			t.Errorf("negative encoding %#x: got %v, want %v", 0x8000|v, neg, -v)
		}
	}
}

func TestDecode_U32Boundary(t *testing.T) {
	unsigned := withDefaults(profile.SensorItem{Rule: profile.RuleU32})
	got, err := Decode(unsigned, []uint16{0xFFFF, 0xFFFF})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4294967295.0 {
		t.Errorf("unsigned u32: got %v, want 4294967295", got)
	}

	signed := withDefaults(profile.SensorItem{Rule: profile.RuleU32, Signed: true})
	got, err = Decode(signed, []uint16{0xFFFF, 0xFFFF})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -1.0 {
		t.Errorf("signed u32: got %v, want -1", got)
	}
}

func TestDecode_I16Boundary(t *testing.T) {
	twosComplement := withDefaults(profile.SensorItem{Rule: profile.RuleI16})
	got, err := Decode(twosComplement, []uint16{0x8000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -32768 {
		t.Errorf("i16 of 0x8000: got %v, want -32768", got)
	}

	magnitude := withDefaults(profile.SensorItem{Rule: profile.RuleI16, Magnitude: true})
	got, err = Decode(magnitude, []uint16{0xFFFF})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -32767 {
		t.Errorf("magnitude-16 of 0xFFFF: got %v, want -32767", got)
	}
}

func TestDecode_RangeOffsetScale(t *testing.T) {
	min, max, offset, scale := 900.0, 1500.0, 1000.0, 0.1
	item := withDefaults(profile.SensorItem{
		Rule: profile.RuleU16, RangeMin: &min, RangeMax: &max, Offset: offset, Scale: scale,
	})
	got, err := Decode(item, []uint16{1259})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := got - 25.9; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("got %v, want 25.9", got)
	}
}

func TestDecode_RawValueOutOfRangeWithoutDefault(t *testing.T) {
	min, max := 900.0, 1500.0
	item := withDefaults(profile.SensorItem{Rule: profile.RuleU16, RangeMin: &min, RangeMax: &max})
	if _, err := Decode(item, []uint16{10}); err == nil {
		t.Fatal("expected raw_value_out_of_range error")
	}
}

func TestDecode_RawValueOutOfRangeUsesDefault(t *testing.T) {
	min, max, def := 900.0, 1500.0, 1200.0
	item := withDefaults(profile.SensorItem{Rule: profile.RuleU16, RangeMin: &min, RangeMax: &max, RangeDefault: &def})
	got, err := Decode(item, []uint16{10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1200 {
		t.Errorf("got %v, want 1200 (range default substituted)", got)
	}
}

func TestDecode_BitExtractionAlwaysZeroOrOne(t *testing.T) {
	for bit := uint8(0); bit < 16; bit++ {
		b := bit
		item := withDefaults(profile.SensorItem{Rule: profile.RuleU16, Bit: &b, Scale: 7, Offset: 3})
		got, err := Decode(item, []uint16{0xFFFF})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != (1-3)*7 {
			t.Errorf("bit %d: scale/offset should still apply to the extracted 0/1, got %v", bit, got)
		}
	}
}

func TestDecode_IntegerDivideTruncatesTowardZero(t *testing.T) {
	divide := uint32(3)
	item := withDefaults(profile.SensorItem{Rule: profile.RuleI16, Divide: &divide})
	got, err := Decode(item, []uint16{uint16(int16(-7))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -2 {
		t.Errorf("-7/3 truncated toward zero: got %v, want -2", got)
	}
}

func TestDecode_UnsupportedRule(t *testing.T) {
	for _, r := range []profile.Rule{profile.RuleComputed, profile.RuleRaw} {
		item := withDefaults(profile.SensorItem{Rule: r})
		if _, err := Decode(item, []uint16{1}); err == nil {
			t.Errorf("rule %v: expected unsupported_rule error", r)
		}
	}
}

func TestDecode_InsufficientRegisters(t *testing.T) {
	item := withDefaults(profile.SensorItem{Rule: profile.RuleU32})
	if _, err := Decode(item, []uint16{1}); err == nil {
		t.Fatal("expected insufficient_registers error")
	}
}

func TestDecode_TimeRule(t *testing.T) {
	item := withDefaults(profile.SensorItem{Rule: profile.RuleTime})
	got, err := Decode(item, []uint16{1530})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 15*60+30 {
		t.Errorf("got %v, want %v", got, 15*60+30)
	}
}

func TestDecodeString_StopsAtFirstZeroByte(t *testing.T) {
	got, err := DecodeString([]uint16{'A'<<8 | 'B', 'C'<<8 | 0, 'Z'<<8 | 'Z'})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ABC" {
		t.Errorf("got %q, want %q", got, "ABC")
	}
}

func TestDecodeString_RejectsControlCharacters(t *testing.T) {
	if _, err := DecodeString([]uint16{'A'<<8 | 0x09}); err == nil {
		t.Error("expected control_character error for embedded tab")
	}
	if _, err := DecodeString([]uint16{'A'<<8 | 0x7F}); err == nil {
		t.Error("expected control_character error for embedded DEL")
	}
}

func TestDecodeVersion_Examples(t *testing.T) {
	defaultOpts := profile.DefaultVersionOptions()

	item := withDefaults(profile.SensorItem{Version: defaultOpts})
	got, err := DecodeVersion(item, []uint16{0x1234})
	if err != nil || got != "1.2.3.4" {
		t.Errorf("[0x1234]: got %q, %v, want %q", got, err, "1.2.3.4")
	}

	got, err = DecodeVersion(item, []uint16{0x0012})
	if err != nil || got != "1.2" {
		t.Errorf("[0x0012]: got %q, %v, want %q", got, err, "1.2")
	}

	got, err = DecodeVersion(item, []uint16{0x0102, 0x0304})
	if err != nil || got != "1.0.2-0.3.0.4" {
		t.Errorf("[0x0102,0x0304]: got %q, %v, want %q", got, err, "1.0.2-0.3.0.4")
	}

	emptyDigitDelim := withDefaults(profile.SensorItem{Version: profile.VersionOptions{DigitDelimiter: "", RegisterDelimiter: "-", Hex: true}})
	got, err = DecodeVersion(emptyDigitDelim, []uint16{0x0206, 0x0115, 0x0108})
	if err != nil || got != "0206-0115-0108" {
		t.Errorf("real firmware example: got %q, %v, want %q", got, err, "0206-0115-0108")
	}
}

func TestDecodeDateTime_Forms(t *testing.T) {
	threeRegister, err := DecodeDateTime([]uint16{0x180C, 0x0E0F, 0x1E2D})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if threeRegister != "24/12/14 15:30:45" {
		t.Errorf("got %q, want %q", threeRegister, "24/12/14 15:30:45")
	}

	sixRegister, err := DecodeDateTime([]uint16{24, 12, 14, 15, 30, 45})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sixRegister != threeRegister {
		t.Errorf("3-register and 6-register forms should agree: %q vs %q", threeRegister, sixRegister)
	}
}

func TestDecodeDateTime_OtherCountsAbsent(t *testing.T) {
	if _, err := DecodeDateTime([]uint16{1, 2}); err == nil {
		t.Error("expected error for unsupported register count")
	}
}

func TestDecodeTimeString(t *testing.T) {
	if got := DecodeTimeString(1530); got != "15:30" {
		t.Errorf("got %q, want %q", got, "15:30")
	}
}

func TestResolveLookup_OrderAndDefault(t *testing.T) {
	entries := []profile.LookupEntry{
		{Kind: profile.LookupSingle, Single: 1, Value: "on-grid"},
		{Kind: profile.LookupMultiple, Multi: []int{2, 3, 4}, Value: "fault"},
		{Kind: profile.LookupDefault, Value: "unknown"},
	}
	if v, ok := ResolveLookup(entries, 1); !ok || v != "on-grid" {
		t.Errorf("single match: got (%q, %v)", v, ok)
	}
	if v, ok := ResolveLookup(entries, 3); !ok || v != "fault" {
		t.Errorf("multi match: got (%q, %v)", v, ok)
	}
	if v, ok := ResolveLookup(entries, 99); !ok || v != "unknown" {
		t.Errorf("default fallback: got (%q, %v)", v, ok)
	}
}

func TestCombineLittleEndian64_BitFlagAlarms(t *testing.T) {
	raw := CombineLittleEndian64([]uint16{0x0006})
	entries := []profile.LookupEntry{
		{Kind: profile.LookupBit, Bit: 1, Value: "Fan failure"},
		{Kind: profile.LookupBit, Bit: 2, Value: "Grid phase failure"},
	}
	var matched []string
	for _, e := range entries {
		if e.Matches(int64(raw)) {
			matched = append(matched, e.Value)
		}
	}
	if len(matched) != 2 || matched[0] != "Fan failure" || matched[1] != "Grid phase failure" {
		t.Errorf("got %v, want [Fan failure, Grid phase failure]", matched)
	}

	zero := CombineLittleEndian64([]uint16{0x0000})
	for _, e := range entries {
		if e.Matches(int64(zero)) {
			t.Errorf("bit %d unexpectedly matched a zero value", e.Bit)
		}
	}
}
