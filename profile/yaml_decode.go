package profile

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The YAML document format accepts several shapes for the same field
// (scalar-or-list, decimal-or-hex, bool-or-null). Rather than carry
// that polymorphism into InverterDefinition, every quirk is absorbed
// here by a small wrapper type with a custom UnmarshalYAML, and the
// parsed result normalizes to one concrete shape (profile/types.go).

type stringOrList []string

func (s *stringOrList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var str string
		if err := value.Decode(&str); err != nil {
			return err
		}
		*s = []string{str}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// floatOrList takes the first element when authored as a list, or the
// scalar value directly. Present distinguishes "field absent" from
// "field present with zero value" for optional float pointers.
type floatOrList struct {
	Value   float64
	Present bool
}

func (f *floatOrList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var list []float64
		if err := value.Decode(&list); err != nil {
			return err
		}
		if len(list) == 0 {
			return fmt.Errorf("expected at least one element")
		}
		f.Value = list[0]
		f.Present = true
		return nil
	}
	var v float64
	if err := value.Decode(&v); err != nil {
		return err
	}
	f.Value = v
	f.Present = true
	return nil
}

// hexOrDecimal accepts a bare YAML integer (including YAML 1.1's
// native 0x hex literals) or a quoted decimal/hex string.
type hexOrDecimal uint32

func (h *hexOrDecimal) UnmarshalYAML(value *yaml.Node) error {
	var i int64
	if err := value.Decode(&i); err == nil {
		*h = hexOrDecimal(uint32(i))
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid integer literal: %w", err)
	}
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		s = s[2:]
		base = 16
	}
	n, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return fmt.Errorf("invalid mask/divide literal %q: %w", s, err)
	}
	*h = hexOrDecimal(n)
	return nil
}

// yamlRange backs both the raw-value `range` block and the
// post-transform `validation` block; each bound may be a scalar or a
// list (first element wins).
type yamlRange struct {
	Min     *floatOrList `yaml:"min"`
	Max     *floatOrList `yaml:"max"`
	Default *floatOrList `yaml:"default"`
}

// delimiterValue accepts the version-decoder `delimiter` field either
// as a bare string (digit delimiter shorthand, register delimiter
// stays "-") or as a {digit, register} mapping.
type delimiterValue struct {
	Digit    string
	Register string
}

func (d *delimiterValue) UnmarshalYAML(value *yaml.Node) error {
	d.Digit = "."
	d.Register = "-"
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		d.Digit = s
		return nil
	}
	var raw struct {
		Digit    *string `yaml:"digit"`
		Register *string `yaml:"register"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Digit != nil {
		d.Digit = *raw.Digit
	}
	if raw.Register != nil {
		d.Register = *raw.Register
	}
	return nil
}

// hexFlag resolves the version-decoder `hex` field: absent means the
// default (hex on), an explicit YAML null means true, and an explicit
// boolean is taken at face value.
type hexFlag struct {
	Value   bool
	Present bool
}

func (h *hexFlag) UnmarshalYAML(value *yaml.Node) error {
	h.Present = true
	if value.Tag == "!!null" {
		h.Value = true
		return nil
	}
	var b bool
	if err := value.Decode(&b); err != nil {
		return fmt.Errorf("invalid hex flag: %w", err)
	}
	h.Value = b
	return nil
}

// attributeFlag resolves the `attribute` field: a literal boolean is
// taken at face value; any other scalar that is present counts as true.
type attributeFlag struct {
	Value   bool
	Present bool
}

func (a *attributeFlag) UnmarshalYAML(value *yaml.Node) error {
	a.Present = true
	var b bool
	if err := value.Decode(&b); err == nil {
		a.Value = b
		return nil
	}
	a.Value = true
	return nil
}

// yamlLookupEntry decodes one `lookup[]` mapping: `key` may be a bare
// int, a list of ints, or the literal string "default"; `bit` is an
// alternate discriminator that, when present, always wins.
type yamlLookupEntry struct {
	entry LookupEntry
}

func (l *yamlLookupEntry) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Key   yaml.Node `yaml:"key"`
		Bit   *int      `yaml:"bit"`
		Value string    `yaml:"value"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	entry := LookupEntry{Value: raw.Value}
	switch {
	case raw.Bit != nil:
		entry.Kind = LookupBit
		entry.Bit = *raw.Bit
	case raw.Key.Kind == yaml.ScalarNode:
		var s string
		if err := raw.Key.Decode(&s); err == nil && s == "default" {
			entry.Kind = LookupDefault
			break
		}
		var i int
		if err := raw.Key.Decode(&i); err != nil {
			return fmt.Errorf("invalid lookup key: %w", err)
		}
		entry.Kind = LookupSingle
		entry.Single = i
	case raw.Key.Kind == yaml.SequenceNode:
		var ints []int
		if err := raw.Key.Decode(&ints); err != nil {
			return err
		}
		entry.Kind = LookupMultiple
		entry.Multi = ints
	default:
		return fmt.Errorf("lookup entry missing both key and bit")
	}

	l.entry = entry
	return nil
}

type yamlSubSensor struct {
	Registers []int    `yaml:"registers"`
	Scale     *float64 `yaml:"scale"`
	Offset    *float64 `yaml:"offset"`
	Signed    bool     `yaml:"signed"`
	Operator  string   `yaml:"operator"`
}

type yamlItem struct {
	Name        string         `yaml:"name"`
	Rule        int            `yaml:"rule"`
	Registers   []int          `yaml:"registers"`
	Platform    string         `yaml:"platform"`
	Class       string         `yaml:"class"`
	StateClass  string         `yaml:"state_class"`
	UoM         string         `yaml:"uom"`
	Icon        string         `yaml:"icon"`
	Scale       *floatOrList   `yaml:"scale"`
	Offset      *float64       `yaml:"offset"`
	Signed      bool           `yaml:"signed"`
	Inverse     bool           `yaml:"inverse"`
	Magnitude   bool           `yaml:"magnitude"`
	Mask        *hexOrDecimal  `yaml:"mask"`
	Divide      *hexOrDecimal  `yaml:"divide"`
	Bit         *uint8         `yaml:"bit"`
	Range       *yamlRange     `yaml:"range"`
	Validation  *yamlRange     `yaml:"validation"`
	Lookup      []yamlLookupEntry `yaml:"lookup"`
	Options     []string       `yaml:"options"`
	Sensors     []yamlSubSensor `yaml:"sensors"`
	Attributes  []string       `yaml:"attributes"`
	Attribute   *attributeFlag `yaml:"attribute"`
	Description string         `yaml:"description"`
	UpdateInterval *int        `yaml:"update_interval"`
	Delimiter   *delimiterValue `yaml:"delimiter"`
	Hex         *hexFlag       `yaml:"hex"`
}

type yamlGroup struct {
	Group          string     `yaml:"group"`
	UpdateInterval *int       `yaml:"update_interval"`
	Items          []yamlItem `yaml:"items"`
}

type yamlRequest struct {
	Start    int    `yaml:"start"`
	Count    int    `yaml:"count"`
	Function string `yaml:"function"`
	Name     string `yaml:"name"`
}

type yamlDocument struct {
	Info struct {
		Manufacturer string       `yaml:"manufacturer"`
		Model        stringOrList `yaml:"model"`
	} `yaml:"info"`
	Default struct {
		UpdateInterval *int `yaml:"update_interval"`
		Digits         *int `yaml:"digits"`
	} `yaml:"default"`
	Requests   []yamlRequest `yaml:"requests"`
	Parameters []yamlGroup   `yaml:"parameters"`
}

func operatorFromString(s string) Operator {
	switch s {
	case "subtract":
		return OpSubtract
	case "multiply":
		return OpMultiply
	case "divide":
		return OpDivide
	default:
		return OpAdd
	}
}

func platformFromString(s string) Platform {
	if s == "" {
		return PlatformSensor
	}
	return Platform(s)
}

func registersToU16(in []int) ([]uint16, error) {
	out := make([]uint16, len(in))
	for i, v := range in {
		if v < 0 || v > 65535 {
			return nil, fmt.Errorf("register address %d out of range 0..65535", v)
		}
		out[i] = uint16(v)
	}
	return out, nil
}

func (doc *yamlDocument) toDefinition() (*InverterDefinition, error) {
	if doc.Info.Manufacturer == "" {
		return nil, fmt.Errorf("info.manufacturer is required")
	}
	if len(doc.Info.Model) == 0 {
		return nil, fmt.Errorf("info.model is required")
	}

	def := &InverterDefinition{
		Info: DeviceInfo{
			Manufacturer:  doc.Info.Manufacturer,
			ModelPatterns: doc.Info.Model,
		},
		Defaults: Defaults{
			UpdateIntervalSeconds: 5,
			Digits:                6,
		},
	}
	if doc.Default.UpdateInterval != nil {
		def.Defaults.UpdateIntervalSeconds = *doc.Default.UpdateInterval
	}
	if doc.Default.Digits != nil {
		def.Defaults.Digits = *doc.Default.Digits
	}

	for _, r := range doc.Requests {
		fn := r.Function
		if fn == "" {
			fn = "holding"
		}
		def.Requests = append(def.Requests, RequestOverride{
			Start: r.Start, Count: r.Count, Function: fn, Name: r.Name,
		})
	}

	for _, g := range doc.Parameters {
		group := ParameterGroup{Group: g.Group, UpdateIntervalSeconds: g.UpdateInterval}
		for _, it := range g.Items {
			item, err := it.toSensorItem()
			if err != nil {
				return nil, fmt.Errorf("group %q, item %q: %w", g.Group, it.Name, err)
			}
			group.Items = append(group.Items, item)
		}
		def.Parameters = append(def.Parameters, group)
	}

	return def, nil
}

func (it *yamlItem) toSensorItem() (SensorItem, error) {
	regs, err := registersToU16(it.Registers)
	if err != nil {
		return SensorItem{}, err
	}

	item := SensorItem{
		Name:         it.Name,
		NormalizedID: Normalize(it.Name),
		Registers:    regs,
		Rule:         Rule(it.Rule),
		Platform:     platformFromString(it.Platform),
		Scale:        1.0,
		Signed:       it.Signed,
		Inverse:      it.Inverse,
		Magnitude:    it.Magnitude,
		Class:        it.Class,
		StateClass:   it.StateClass,
		UoM:          it.UoM,
		Icon:         it.Icon,
		Options:      it.Options,
		Attributes:   it.Attributes,
		Description:  it.Description,
		UpdateIntervalSecs: it.UpdateInterval,
		Version:      DefaultVersionOptions(),
	}
	if it.Name == "" {
		item.NormalizedID = ""
	}

	if it.Scale != nil {
		item.Scale = it.Scale.Value
	}
	if it.Offset != nil {
		item.Offset = *it.Offset
	}
	if it.Mask != nil {
		v := uint32(*it.Mask)
		item.Mask = &v
	}
	if it.Divide != nil {
		v := uint32(*it.Divide)
		item.Divide = &v
	}
	item.Bit = it.Bit

	if it.Range != nil {
		if it.Range.Min != nil {
			v := it.Range.Min.Value
			item.RangeMin = &v
		}
		if it.Range.Max != nil {
			v := it.Range.Max.Value
			item.RangeMax = &v
		}
		if it.Range.Default != nil {
			v := it.Range.Default.Value
			item.RangeDefault = &v
		}
	}
	if it.Validation != nil {
		if it.Validation.Min != nil {
			v := it.Validation.Min.Value
			item.ValidationMin = &v
		}
		if it.Validation.Max != nil {
			v := it.Validation.Max.Value
			item.ValidationMax = &v
		}
	}

	for _, l := range it.Lookup {
		item.Lookup = append(item.Lookup, l.entry)
	}

	for _, s := range it.Sensors {
		subRegs, err := registersToU16(s.Registers)
		if err != nil {
			return SensorItem{}, err
		}
		sub := SubSensor{
			Registers: subRegs,
			Scale:     1.0,
			Signed:    s.Signed,
			Operator:  operatorFromString(s.Operator),
		}
		if s.Scale != nil {
			sub.Scale = *s.Scale
		}
		if s.Offset != nil {
			sub.Offset = *s.Offset
		}
		item.Sensors = append(item.Sensors, sub)
	}

	if it.Attribute != nil {
		item.Attribute = it.Attribute.Value
	}

	if it.Delimiter != nil {
		item.Version.DigitDelimiter = it.Delimiter.Digit
		item.Version.RegisterDelimiter = it.Delimiter.Register
	}
	if it.Hex != nil {
		item.Version.Hex = it.Hex.Value
	}

	return item, nil
}
