package status

import (
	"strings"
	"time"

	"github.com/devskill-org/solarstatus/convert"
	"github.com/devskill-org/solarstatus/profile"
	"github.com/devskill-org/solarstatus/sensorkey"
)

// Registers is the address -> value map a transport read populates.
type Registers map[uint16]uint16

// Build assembles a SolarStatus from a populated register map, a
// device profile, and the set of subsystem groups the caller
// requested (spec.md §4.4). Unrequested subsystems stay nil.
func Build(registers Registers, def *profile.InverterDefinition, requestedGroups []string) *SolarStatus {
	requested := make(map[string]bool, len(requestedGroups))
	for _, g := range requestedGroups {
		requested[g] = true
	}

	s := &SolarStatus{Timestamp: time.Now().UTC()}

	if requested["battery"] {
		s.Battery = buildBattery(extractValues(collect(def, "battery"), registers))
	}
	if requested["grid"] {
		s.Grid = buildGrid(extractValues(collect(def, "grid"), registers))
	}
	if requested["pv"] {
		s.PV = buildPV(extractValues(collect(def, "pv"), registers))
	}
	if requested["load"] {
		s.Load = buildLoad(extractValues(collect(def, "load"), registers))
	}
	if requested["inverter"] {
		items := collect(def, "inverter")
		s.Inverter = buildInverter(items, registers, extractValues(items, registers))
	}
	if requested["generator"] {
		s.Generator = buildGenerator(extractValues(collect(def, "generator"), registers))
	}
	if requested["ups"] {
		items := collect(def, "ups")
		s.UPS = buildUPS(items, registers, extractValues(items, registers))
	}
	if requested["bms"] {
		s.BMS = buildBMS(extractValues(collect(def, "bms"), registers))
	}
	if requested["time_of_use"] {
		s.TimeOfUse = buildTimeOfUse(extractValues(collect(def, "time_of_use"), registers))
	}

	return s
}

// extractValues implements spec.md §4.4's numeric value extraction:
// for every collected item with a numeric rule and a non-empty
// normalized_id, every referenced register must be present; decode
// errors and missing registers drop the item silently (optional-sensor
// semantics); first occurrence of a normalized_id wins.
func extractValues(items []profile.SensorItem, registers Registers) map[string]float64 {
	values := make(map[string]float64)
	for _, it := range items {
		if it.NormalizedID == "" || !convert.IsNumericRule(it.Rule) {
			continue
		}
		if _, exists := values[it.NormalizedID]; exists {
			continue
		}
		regs, ok := presentRegisters(it.Registers, registers)
		if !ok {
			continue
		}
		v, err := convert.Decode(it, regs)
		if err != nil {
			continue
		}
		values[it.NormalizedID] = v
	}
	return values
}

func presentRegisters(addrs []uint16, registers Registers) ([]uint16, bool) {
	out := make([]uint16, len(addrs))
	for i, a := range addrs {
		v, ok := registers[a]
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func findItem(items []profile.SensorItem, normalizedID string) (profile.SensorItem, bool) {
	for _, it := range items {
		if it.NormalizedID == normalizedID {
			return it, true
		}
	}
	return profile.SensorItem{}, false
}

func ptr(v float64) *float64 { return &v }

func buildBattery(v map[string]float64) *Battery {
	soc, ok := sensorkey.BatterySOC.Lookup(v)
	if !ok {
		return nil
	}
	voltage, ok := sensorkey.BatteryVoltage.Lookup(v)
	if !ok {
		return nil
	}
	power, ok := sensorkey.BatteryPower.Lookup(v)
	if !ok {
		return nil
	}

	b := &Battery{SOC: int(soc), Voltage: voltage, Power: int(power)}
	if current, ok := sensorkey.BatteryCurrent.Lookup(v); ok {
		b.Current = current
	} else if voltage > 0 {
		b.Current = power / voltage
	}
	if t, ok := sensorkey.BatteryTemperature.Lookup(v); ok {
		b.Temperature = ptr(t)
	}
	if soh, ok := sensorkey.BatterySOH.Lookup(v); ok {
		soh := int(soh)
		b.SOH = &soh
	}
	if dc, ok := sensorkey.BatteryDailyCharge.Lookup(v); ok {
		b.DailyCharge = ptr(dc)
	}
	if dd, ok := sensorkey.BatteryDailyDischarge.Lookup(v); ok {
		b.DailyDischarge = ptr(dd)
	}
	if tc, ok := sensorkey.BatteryTotalCharge.Lookup(v); ok {
		b.TotalCharge = ptr(tc)
	}
	if td, ok := sensorkey.BatteryTotalDischarge.Lookup(v); ok {
		b.TotalDischarge = ptr(td)
	}
	return b
}

func buildPhases(v map[string]float64, voltageOf, currentOf, powerOf func(int) sensorkey.Key) map[int]Phase {
	var phases map[int]Phase
	for phase := 1; phase <= 3; phase++ {
		volt, hasVolt := voltageOf(phase).Lookup(v)
		cur, hasCur := currentOf(phase).Lookup(v)
		pow, hasPow := powerOf(phase).Lookup(v)
		if !hasVolt && !hasCur && !hasPow {
			continue
		}
		if phases == nil {
			phases = make(map[int]Phase)
		}
		p := Phase{}
		if hasVolt {
			p.Voltage = ptr(volt)
		}
		if hasCur {
			p.Current = ptr(cur)
		}
		if hasPow {
			p.Power = ptr(pow)
		}
		phases[phase] = p
	}
	return phases
}

func buildCTPhases(v map[string]float64) map[int]Phase {
	var phases map[int]Phase
	for phase := 1; phase <= 3; phase++ {
		cur, hasCur := sensorkey.ExternalCTPhaseCurrent(phase).Lookup(v)
		pow, hasPow := sensorkey.ExternalCTPhasePower(phase).Lookup(v)
		if !hasCur && !hasPow {
			continue
		}
		if phases == nil {
			phases = make(map[int]Phase)
		}
		p := Phase{}
		if hasCur {
			p.Current = ptr(cur)
		}
		if hasPow {
			p.Power = ptr(pow)
		}
		phases[phase] = p
	}
	return phases
}

func buildGrid(v map[string]float64) *Grid {
	totalPower, ok := sensorkey.GridTotalPower.Lookup(v)
	if !ok {
		return nil
	}
	g := &Grid{TotalPower: int(totalPower)}
	g.Phases = buildPhases(v, sensorkey.GridPhaseVoltage, sensorkey.GridPhaseCurrent, sensorkey.GridPhasePower)
	if len(g.Phases) == 0 {
		if volt, ok := sensorkey.GridVoltage.Lookup(v); ok {
			g.Voltage = ptr(volt)
		}
		if cur, ok := sensorkey.GridCurrent.Lookup(v); ok {
			g.Current = ptr(cur)
		}
	}
	if f, ok := sensorkey.GridFrequency.Lookup(v); ok {
		g.Frequency = ptr(f)
	}
	if pf, ok := sensorkey.GridPowerFactor.Lookup(v); ok {
		g.PowerFactor = ptr(pf)
	}
	if di, ok := sensorkey.GridDailyImport.Lookup(v); ok {
		g.DailyImport = ptr(di)
	}
	if de, ok := sensorkey.GridDailyExport.Lookup(v); ok {
		g.DailyExport = ptr(de)
	}
	if ti, ok := sensorkey.GridTotalImport.Lookup(v); ok {
		g.TotalImport = ptr(ti)
	}
	if te, ok := sensorkey.GridTotalExport.Lookup(v); ok {
		g.TotalExport = ptr(te)
	}

	ctPhases := buildCTPhases(v)
	ctTotal, hasCTTotal := sensorkey.ExternalCTTotalPower.Lookup(v)
	if hasCTTotal || len(ctPhases) > 0 {
		ct := &ExternalCT{Phases: ctPhases}
		if hasCTTotal {
			ct.TotalPower = ctTotal
		} else {
			var sum float64
			for _, p := range ctPhases {
				if p.Power != nil {
					sum += *p.Power
				}
			}
			ct.TotalPower = sum
		}
		g.ExternalCT = ct
	}
	return g
}

func buildPV(v map[string]float64) *PV {
	pv := &PV{}
	var sum float64
	for i := 1; i <= 4; i++ {
		power, ok := sensorkey.PVStringPower(i).Lookup(v)
		if !ok {
			continue
		}
		s := PVString{ID: i, Power: int(power)}
		if volt, ok := sensorkey.PVStringVoltage(i).Lookup(v); ok {
			s.Voltage = volt
		}
		if cur, ok := sensorkey.PVStringCurrent(i).Lookup(v); ok {
			s.Current = cur
		} else if s.Voltage > 0 {
			s.Current = power / s.Voltage
		}
		pv.Strings = append(pv.Strings, s)
		sum += power
	}
	if total, ok := sensorkey.TotalPVPower.Lookup(v); ok {
		pv.TotalPower = total
	} else {
		pv.TotalPower = sum
	}
	if dp, ok := sensorkey.PVDailyProduction.Lookup(v); ok {
		pv.DailyProduction = ptr(dp)
	}
	if tp, ok := sensorkey.PVTotalProduction.Lookup(v); ok {
		pv.TotalProduction = ptr(tp)
	}
	if len(pv.Strings) == 0 && pv.TotalPower == 0 && pv.DailyProduction == nil && pv.TotalProduction == nil {
		return nil
	}
	return pv
}

func buildLoad(v map[string]float64) *Load {
	totalPower, ok := sensorkey.LoadTotalPower.Lookup(v)
	if !ok {
		return nil
	}
	l := &Load{TotalPower: int(totalPower)}
	for phase := 1; phase <= 3; phase++ {
		if p, ok := sensorkey.LoadPhasePower(phase).Lookup(v); ok {
			if l.Phases == nil {
				l.Phases = make(map[int]float64)
			}
			l.Phases[phase] = p
		}
	}
	if f, ok := sensorkey.LoadFrequency.Lookup(v); ok {
		l.Frequency = ptr(f)
	}
	if dc, ok := sensorkey.LoadDailyConsumption.Lookup(v); ok {
		l.DailyConsumption = ptr(dc)
	}
	if tc, ok := sensorkey.LoadTotalConsumption.Lookup(v); ok {
		l.TotalConsumption = ptr(tc)
	}
	return l
}

var statusEquivalence = map[InverterStatusState][]string{
	StatusStandby: {"standby", "stand-by", "waiting"},
	StatusRunning: {"running", "normal", "generating", "on-grid", "charging", "discharging", "charging check", "discharging check", "emergency power supply"},
	StatusFault:   {"fault", "alarm", "error", "failure", "permanent fault", "recoverable fault"},
}

func classifyStatus(label string) InverterStatusState {
	lower := strings.ToLower(label)
	for state, labels := range statusEquivalence {
		for _, l := range labels {
			if l == lower {
				return state
			}
		}
	}
	return StatusUnknown
}

func buildInverter(items []profile.SensorItem, registers Registers, values map[string]float64) *Inverter {
	inv := &Inverter{Values: values}
	haveAny := false

	if it, ok := findItem(items, sensorkey.DeviceSerialNumber.Primary); ok {
		if regs, ok := presentRegisters(it.Registers, registers); ok {
			if s, err := convert.DecodeString(regs); err == nil {
				inv.SerialNumber = s
				haveAny = true
			}
		}
	}
	if it, ok := findItem(items, sensorkey.DeviceFirmwareVersion.Primary); ok {
		if regs, ok := presentRegisters(it.Registers, registers); ok {
			if s, err := convert.DecodeVersion(it, regs); err == nil {
				inv.FirmwareVersion = s
				haveAny = true
			}
		}
	}
	if raw, ok := values[sensorkey.DeviceState.Primary]; ok {
		if it, ok := findItem(items, sensorkey.DeviceState.Primary); ok && len(it.Lookup) > 0 {
			if label, ok := convert.ResolveLookup(it.Lookup, int64(raw)); ok {
				inv.Model = label
				inv.Status = classifyStatus(label)
				haveAny = true
			}
		}
	}
	if it, ok := findItem(items, sensorkey.DeviceAlarm.Primary); ok {
		if regs, ok := presentRegisters(it.Registers, registers); ok {
			inv.Alarms = decodeBitAlarms(it.Lookup, regs)
		}
	}
	if it, ok := findItem(items, sensorkey.DeviceFault.Primary); ok {
		if regs, ok := presentRegisters(it.Registers, registers); ok {
			inv.Faults = decodeBitAlarms(it.Lookup, regs)
		}
	}
	if it, ok := findItem(items, sensorkey.DeviceTime.Primary); ok {
		if regs, ok := presentRegisters(it.Registers, registers); ok {
			if s, err := convert.DecodeDateTime(regs); err == nil {
				if t, err := time.ParseInLocation("06/01/02 15:04:05", s, time.UTC); err == nil {
					inv.DeviceTime = &t
				}
			}
		}
	}
	if len(values) > 0 {
		haveAny = true
	}

	if !haveAny && inv.Status == "" {
		return nil
	}
	if inv.Status == "" {
		inv.Status = StatusUnknown
	}
	return inv
}

func decodeBitAlarms(entries []profile.LookupEntry, regs []uint16) []Alarm {
	raw := int64(convert.CombineLittleEndian64(regs))
	var alarms []Alarm
	for _, e := range entries {
		if e.Kind != profile.LookupBit {
			continue
		}
		if e.Matches(raw) {
			alarms = append(alarms, Alarm{Bit: e.Bit, Description: e.Value})
		}
	}
	return alarms
}

func buildGenerator(v map[string]float64) *Generator {
	power, ok := sensorkey.GeneratorTotalPower.Lookup(v)
	if !ok {
		return nil
	}
	abs := power
	if abs < 0 {
		abs = -abs
	}
	return &Generator{TotalPower: abs, IsRunning: abs > 0}
}

var upsModeEquivalence = map[UPSMode][]string{
	UPSModeBattery: {"emergency power supply", "eps", "off-grid", "discharging"},
	UPSModeStandby: {"on-grid", "normal", "running", "standby", "stand-by", "waiting", "charging", "charging check"},
	UPSModeBypass:  {"bypass"},
}

func classifyUPSMode(label string) *UPSMode {
	lower := strings.ToLower(label)
	for mode, labels := range upsModeEquivalence {
		for _, l := range labels {
			if l == lower {
				m := mode
				return &m
			}
		}
	}
	return nil
}

func buildUPS(items []profile.SensorItem, registers Registers, v map[string]float64) *UPS {
	power, ok := sensorkey.UPSTotalPower.Lookup(v)
	if !ok {
		return nil
	}
	u := &UPS{TotalPower: power}
	u.Phases = buildPhases(v, sensorkey.UPSPhaseVoltage, sensorkey.UPSPhaseCurrent, sensorkey.UPSPhasePower)

	if raw, ok := v[sensorkey.DeviceState.Primary]; ok {
		if it, ok := findItem(items, sensorkey.DeviceState.Primary); ok && len(it.Lookup) > 0 {
			if label, ok := convert.ResolveLookup(it.Lookup, int64(raw)); ok {
				u.Mode = classifyUPSMode(label)
			}
		}
	}
	return u
}

func buildBMS(v map[string]float64) []BMSUnit {
	var units []BMSUnit
	for _, unit := range sensorkey.BMSUnits {
		if u, ok := buildBMSUnit(v, unit); ok {
			units = append(units, u)
		}
	}
	if len(units) == 0 {
		if u, ok := buildBMSUnit(v, sensorkey.BMSFallbackUnit); ok {
			units = append(units, u)
		}
	}
	return units
}

func buildBMSUnit(v map[string]float64, unit string) (BMSUnit, bool) {
	soc, ok := sensorkey.BMSSOC(unit).Lookup(v)
	if !ok {
		return BMSUnit{}, false
	}
	voltage, ok := sensorkey.BMSVoltage(unit).Lookup(v)
	if !ok {
		return BMSUnit{}, false
	}
	u := BMSUnit{Unit: unit, SOC: soc, Voltage: voltage, CellCount: 16}
	if cur, ok := sensorkey.BMSCurrent(unit).Lookup(v); ok {
		u.Current = cur
	}
	minV, hasMin := sensorkey.BMSCellMinVoltage(unit).Lookup(v)
	maxV, hasMax := sensorkey.BMSCellMaxVoltage(unit).Lookup(v)
	if hasMin && hasMax {
		u.CellMinVoltage = ptr(minV)
		u.CellMaxVoltage = ptr(maxV)
		delta := (maxV - minV) * 1000
		if delta < 0 {
			delta = 0
		}
		u.VoltageDeltaMV = ptr(roundFloat(delta))
	}
	if count, ok := sensorkey.BMSCellCount(unit).Lookup(v); ok {
		u.CellCount = int(count)
	}
	if t, ok := sensorkey.BMSTemperature(unit).Lookup(v); ok {
		u.Temperature = ptr(t)
	}
	return u, true
}

func roundFloat(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return -float64(int64(-v + 0.5))
}

func buildTimeOfUse(v map[string]float64) *TimeOfUse {
	tou := &TimeOfUse{}
	for slot := 1; slot <= 6; slot++ {
		minutes, ok := sensorkey.TOUSlotTimeMinutes(slot).Lookup(v)
		if !ok {
			continue
		}
		s := TimeOfUseSlot{Slot: slot, TimeMinutes: minutes, IsEnabled: true}
		if flag, ok := sensorkey.TOUSlotChargingFlag(slot).Lookup(v); ok {
			s.IsEnabled = flag > 0
			mode := ModeSelfConsumption
			if flag > 0 {
				mode = ModeGridCharge
			}
			s.Mode = &mode
		}
		if t, ok := sensorkey.TOUSlotTargetSOC(slot).Lookup(v); ok {
			s.TargetSOC = ptr(t)
		}
		if p, ok := sensorkey.TOUSlotChargePower(slot).Lookup(v); ok {
			s.ChargePower = ptr(p)
		}
		if cv, ok := sensorkey.TOUSlotChargeVoltage(slot).Lookup(v); ok {
			s.ChargeVoltage = ptr(cv)
		}
		tou.Slots = append(tou.Slots, s)
	}
	if schedule, ok := sensorkey.TOUWeeklySchedule.Lookup(v); ok {
		b := uint8(schedule)
		tou.WeeklySchedule = &b
	}
	if len(tou.Slots) == 0 {
		return nil
	}
	return tou
}
