// Package convert implements the register-value converter: the pure
// translation from raw 16-bit Modbus register values to typed Go
// values (numeric, string, version, datetime, lookup) under a
// profile.SensorItem's parsing rule and transformation chain.
package convert

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/devskill-org/solarstatus/errs"
	"github.com/devskill-org/solarstatus/profile"
)

// IsNumericRule reports whether a rule decodes through Decode (the
// generic numeric pipeline), matching spec.md §4.4's extraction set.
func IsNumericRule(r profile.Rule) bool {
	switch r {
	case profile.RuleU16, profile.RuleI16, profile.RuleU32, profile.RuleI32, profile.RuleTime:
		return true
	default:
		return false
	}
}

// Decode runs the numeric convert path (spec.md §4.2) for rules u16,
// i16, u32, i32, and time: decode → raw-range check → mask → bit
// extract → affine transform → integer divide → validation.
func Decode(item profile.SensorItem, values []uint16) (float64, error) {
	min := profile.MinRegistersForRule(item.Rule)
	if min < 0 {
		return 0, &errs.SensorError{Kind: errs.UnsupportedRule, Rule: int(item.Rule)}
	}
	if len(values) < min {
		return 0, &errs.SensorError{Kind: errs.InsufficientRegisters, Expected: min, Got: len(values)}
	}

	raw, err := decodeRaw(item, values)
	if err != nil {
		return 0, err
	}

	if item.RangeMin != nil && raw < *item.RangeMin || item.RangeMax != nil && raw > *item.RangeMax {
		if item.RangeDefault != nil {
			raw = *item.RangeDefault
		} else {
			return 0, &errs.SensorError{Kind: errs.RawValueOutOfRange, Value: raw, Min: item.RangeMin, Max: item.RangeMax}
		}
	}

	if item.Mask != nil {
		raw = float64(toRawUint32(raw) & *item.Mask)
	}

	if item.Bit != nil {
		raw = float64((toRawUint32(raw) >> uint(*item.Bit)) & 1)
	}

	scale := item.Scale
	if scale == 0 {
		scale = 1.0
	}
	value := (raw - item.Offset) * scale
	if item.Inverse {
		value = -value
	}

	if item.Divide != nil && *item.Divide > 0 {
		value = float64(int64(value) / int64(*item.Divide))
	}

	if item.ValidationMin != nil && value < *item.ValidationMin || item.ValidationMax != nil && value > *item.ValidationMax {
		return 0, &errs.SensorError{Kind: errs.ValueOutOfRange, Value: value, Min: item.ValidationMin, Max: item.ValidationMax}
	}

	return value, nil
}

func decodeRaw(item profile.SensorItem, values []uint16) (float64, error) {
	switch item.Rule {
	case profile.RuleU16:
		v := values[0]
		if item.Signed {
			if item.Magnitude {
				return signMagnitude16(v), nil
			}
			return float64(int16(v)), nil
		}
		return float64(v), nil
	case profile.RuleI16:
		if item.Magnitude {
			return signMagnitude16(values[0]), nil
		}
		return float64(int16(values[0])), nil
	case profile.RuleU32:
		combined := uint32(values[0]) | uint32(values[1])<<16
		if item.Signed {
			if item.Magnitude {
				return signMagnitude32(combined), nil
			}
			return float64(int32(combined)), nil
		}
		return float64(combined), nil
	case profile.RuleI32:
		combined := uint32(values[0]) | uint32(values[1])<<16
		if item.Magnitude {
			return signMagnitude32(combined), nil
		}
		return float64(int32(combined)), nil
	case profile.RuleTime:
		v := values[0]
		hours := v / 100
		minutes := v % 100
		return float64(hours)*60 + float64(minutes), nil
	default:
		return 0, &errs.SensorError{Kind: errs.UnsupportedRule, Rule: int(item.Rule)}
	}
}

// signMagnitude16 decodes a 16-bit sign-magnitude value: bit 15 is the
// sign, the low 15 bits are the magnitude.
func signMagnitude16(v uint16) float64 {
	if v&0x8000 != 0 {
		return -float64(v & 0x7FFF)
	}
	return float64(v & 0x7FFF)
}

// signMagnitude32 is signMagnitude16's 32-bit counterpart.
func signMagnitude32(v uint32) float64 {
	if v&0x80000000 != 0 {
		return -float64(v & 0x7FFFFFFF)
	}
	return float64(v & 0x7FFFFFFF)
}

// toRawUint32 reinterprets a decoded raw value as its 32-bit two's
// complement bit pattern, the representation mask/bit-extract operate on.
func toRawUint32(raw float64) uint32 {
	return uint32(int64(raw))
}

// DecodeString implements rule-5 ASCII/UTF-8 string decoding: two
// bytes per register (MSB first), stopping at the first zero byte,
// rejecting invalid UTF-8 and control scalars.
func DecodeString(values []uint16) (string, error) {
	if len(values) == 0 {
		return "", &errs.SensorError{Kind: errs.InsufficientRegisters, Expected: 1, Got: 0}
	}
	var buf []byte
loop:
	for _, v := range values {
		hi := byte(v >> 8)
		lo := byte(v)
		if hi == 0 {
			break loop
		}
		buf = append(buf, hi)
		if lo == 0 {
			break loop
		}
		buf = append(buf, lo)
	}
	if !utf8.Valid(buf) {
		return "", &errs.SensorError{Kind: errs.InvalidUTF8}
	}
	s := string(buf)
	for _, r := range s {
		if r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F) {
			return "", &errs.SensorError{Kind: errs.ControlCharacter, Scalar: r}
		}
	}
	return s, nil
}

// DecodeVersion implements rule-7 version decoding: every register
// splits into four MSB-first nibbles, rendered hex or decimal, joined
// by the item's digit/register delimiters, with leading-zero digit
// groups trimmed from the front of the whole string.
func DecodeVersion(item profile.SensorItem, values []uint16) (string, error) {
	if len(values) == 0 {
		return "", &errs.SensorError{Kind: errs.InsufficientRegisters, Expected: 1, Got: 0}
	}
	digitDelim := item.Version.DigitDelimiter
	regDelim := item.Version.RegisterDelimiter
	hex := item.Version.Hex

	regParts := make([]string, 0, len(values))
	for _, v := range values {
		nibbles := [4]int{int(v >> 12 & 0xF), int(v >> 8 & 0xF), int(v >> 4 & 0xF), int(v & 0xF)}
		nibStrs := make([]string, 4)
		for i, n := range nibbles {
			nibStrs[i] = nibbleString(n, hex)
		}
		regParts = append(regParts, strings.Join(nibStrs, digitDelim))
	}
	full := strings.Join(regParts, regDelim)
	if regDelim != "" {
		full = strings.TrimSuffix(full, regDelim)
	}

	if digitDelim != "" {
		sep := digitDelim[:1]
		parts := strings.Split(full, sep)
		i := 0
		for i < len(parts)-1 && parts[i] == "0" {
			i++
		}
		full = strings.Join(parts[i:], sep)
	}
	return full, nil
}

func nibbleString(n int, hex bool) string {
	if hex {
		return strings.ToUpper(strconv.FormatInt(int64(n), 16))
	}
	return strconv.Itoa(n)
}

// DecodeDateTime implements rule-8 datetime decoding: 3-register form
// packs two fields per register; 6-register form is one field per
// register. Any other count returns an InsufficientRegisters error and
// no string.
func DecodeDateTime(values []uint16) (string, error) {
	switch len(values) {
	case 3:
		year := values[0] >> 8
		month := values[0] & 0xFF
		day := values[1] >> 8
		hour := values[1] & 0xFF
		minute := values[2] >> 8
		second := values[2] & 0xFF
		return formatDateTime(year, month, day, hour, minute, second), nil
	case 6:
		return formatDateTime(values[0], values[1], values[2], values[3], values[4], values[5]), nil
	default:
		return "", &errs.SensorError{Kind: errs.InsufficientRegisters, Expected: 3, Got: len(values)}
	}
}

func formatDateTime(year, month, day, hour, minute, second uint16) string {
	return pad2(int(year%100)) + "/" + pad2(int(month)) + "/" + pad2(int(day)) + " " +
		pad2(int(hour)) + ":" + pad2(int(minute)) + ":" + pad2(int(second))
}

func pad2(v int) string {
	s := strconv.Itoa(v)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

// DecodeTimeString renders rule-9's HHMM register encoding as a
// zero-padded "HH:MM" string, with no bounds validation.
func DecodeTimeString(v uint16) string {
	return pad2(int(v/100)) + ":" + pad2(int(v%100))
}

// ResolveLookup walks lookup entries in declared order: non-default
// entries are tried first, in order; the default entry (if any) is
// consulted only once every non-default entry has failed.
func ResolveLookup(entries []profile.LookupEntry, raw int64) (string, bool) {
	var def *profile.LookupEntry
	for i := range entries {
		e := entries[i]
		if e.Kind == profile.LookupDefault {
			if def == nil {
				def = &entries[i]
			}
			continue
		}
		if e.Matches(raw) {
			return e.Value, true
		}
	}
	if def != nil {
		return def.Value, true
	}
	return "", false
}

// CombineLittleEndian64 assembles up to four registers into a 64-bit
// value, first register as the least-significant word, for multi-word
// bit-flag alarm/fault extraction.
func CombineLittleEndian64(values []uint16) uint64 {
	var result uint64
	for i, v := range values {
		if i >= 4 {
			break
		}
		result |= uint64(v) << uint(16*i)
	}
	return result
}
