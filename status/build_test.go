package status

import (
	"testing"

	"github.com/devskill-org/solarstatus/profile"
)

func regMap(pairs map[uint16]uint16) Registers {
	return Registers(pairs)
}

func TestBuild_DeyeThreePhaseHybridSOCRead(t *testing.T) {
	def := &profile.InverterDefinition{
		Info: profile.DeviceInfo{Manufacturer: "Deye", ModelPatterns: []string{"SUN-*-SG01LP3*"}},
		Parameters: []profile.ParameterGroup{
			{Group: "Battery", Items: []profile.SensorItem{
				{Name: "Battery SOC", NormalizedID: "battery_soc", Rule: profile.RuleU16, Registers: []uint16{0x00B8}, Scale: 1},
				{Name: "Battery Voltage", NormalizedID: "battery_voltage", Rule: profile.RuleU16, Registers: []uint16{0x00B7}, Scale: 0.01},
				{Name: "Battery Power", NormalizedID: "battery_power", Rule: profile.RuleI16, Registers: []uint16{0x00BE}, Scale: 1},
			}},
		},
	}
	registers := regMap(map[uint16]uint16{0x00B8: 95, 0x00B7: 5328, 0x00BE: 9})

	got := Build(registers, def, []string{"battery"})
	if got.Battery == nil {
		t.Fatal("expected a battery record")
	}
	if got.Battery.SOC != 95 {
		t.Errorf("soc: got %d, want 95", got.Battery.SOC)
	}
	if got.Battery.Voltage != 53.28 {
		t.Errorf("voltage: got %v, want 53.28", got.Battery.Voltage)
	}
	if got.Battery.Power != 9 {
		t.Errorf("power: got %d, want 9", got.Battery.Power)
	}
	wantCurrent := 9.0 / 53.28
	if diff := got.Battery.Current - wantCurrent; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("current: got %v, want %v", got.Battery.Current, wantCurrent)
	}
	if got.Grid != nil || got.PV != nil || got.Load != nil {
		t.Error("unrequested subsystems should be absent")
	}
}

func TestBuild_BitFlagAlarms(t *testing.T) {
	def := &profile.InverterDefinition{
		Info: profile.DeviceInfo{Manufacturer: "Deye", ModelPatterns: []string{"*"}},
		Parameters: []profile.ParameterGroup{
			{Group: "Info", Items: []profile.SensorItem{
				{Name: "Device Alarm", NormalizedID: "device_alarm", Rule: profile.RuleBits, Registers: []uint16{0x0229}, Lookup: []profile.LookupEntry{
					{Kind: profile.LookupBit, Bit: 1, Value: "Fan failure"},
					{Kind: profile.LookupBit, Bit: 2, Value: "Grid phase failure"},
				}},
				{Name: "Inverter Temperature", NormalizedID: "inverter_temperature", Rule: profile.RuleI16, Registers: []uint16{0x022A}, Scale: 1},
			}},
		},
	}

	withAlarms := Build(regMap(map[uint16]uint16{0x0229: 0x0006, 0x022A: 40}), def, []string{"inverter"})
	if len(withAlarms.Inverter.Alarms) != 2 {
		t.Fatalf("got %d alarms, want 2: %+v", len(withAlarms.Inverter.Alarms), withAlarms.Inverter.Alarms)
	}
	if withAlarms.Inverter.Alarms[0].Description != "Fan failure" || withAlarms.Inverter.Alarms[1].Description != "Grid phase failure" {
		t.Errorf("unexpected alarm order/content: %+v", withAlarms.Inverter.Alarms)
	}

	noAlarms := Build(regMap(map[uint16]uint16{0x0229: 0x0000, 0x022A: 40}), def, []string{"inverter"})
	if len(noAlarms.Inverter.Alarms) != 0 {
		t.Errorf("got %d alarms, want 0", len(noAlarms.Inverter.Alarms))
	}
}

func TestBuild_DeviceTimeParsedToInstant(t *testing.T) {
	def := &profile.InverterDefinition{
		Info: profile.DeviceInfo{Manufacturer: "Deye", ModelPatterns: []string{"*"}},
		Parameters: []profile.ParameterGroup{
			{Group: "Info", Items: []profile.SensorItem{
				{Name: "Device Time", NormalizedID: "device_time", Rule: profile.RuleDateTime, Registers: []uint16{1, 2, 3}},
				{Name: "Inverter Temperature", NormalizedID: "inverter_temperature", Rule: profile.RuleI16, Registers: []uint16{4}, Scale: 1},
			}},
		},
	}
	registers := regMap(map[uint16]uint16{1: 0x180C, 2: 0x0E0F, 3: 0x1E2D, 4: 40})

	got := Build(registers, def, []string{"inverter"})
	if got.Inverter == nil || got.Inverter.DeviceTime == nil {
		t.Fatal("expected a parsed device time")
	}
	want := got.Inverter.DeviceTime.Format("06/01/02 15:04:05")
	if want != "24/12/14 15:30:45" {
		t.Errorf("got %q, want %q", want, "24/12/14 15:30:45")
	}
}

func TestBuild_BMSFallbackToGenericUnit(t *testing.T) {
	def := &profile.InverterDefinition{
		Info: profile.DeviceInfo{Manufacturer: "Growatt", ModelPatterns: []string{"*"}},
		Parameters: []profile.ParameterGroup{
			{Group: "Battery Management", Items: []profile.SensorItem{
				{Name: "Battery Bms SOC", NormalizedID: "battery_bms_soc", Rule: profile.RuleU16, Registers: []uint16{10}, Scale: 1},
				{Name: "Battery Bms Voltage", NormalizedID: "battery_bms_voltage", Rule: profile.RuleU16, Registers: []uint16{11}, Scale: 0.01},
			}},
		},
	}
	registers := regMap(map[uint16]uint16{10: 80, 11: 5280})
	got := Build(registers, def, []string{"bms"})
	if len(got.BMS) != 1 {
		t.Fatalf("got %d units, want 1 (fallback): %+v", len(got.BMS), got.BMS)
	}
	if got.BMS[0].Unit != "battery_bms" || got.BMS[0].SOC != 80 {
		t.Errorf("got %+v", got.BMS[0])
	}
	if got.BMS[0].CellCount != 16 {
		t.Errorf("default cell_count: got %d, want 16", got.BMS[0].CellCount)
	}
}

func TestBuild_TimeOfUseSlotTimeAndMode(t *testing.T) {
	def := &profile.InverterDefinition{
		Info: profile.DeviceInfo{Manufacturer: "Growatt", ModelPatterns: []string{"*"}},
		Parameters: []profile.ParameterGroup{
			{Group: "Time of Use", Items: []profile.SensorItem{
				{Name: "Program 1 Time", NormalizedID: "program_1_time", Rule: profile.RuleTime, Registers: []uint16{1}, Scale: 1},
				{Name: "Program 1 Charging", NormalizedID: "program_1_charging", Rule: profile.RuleU16, Registers: []uint16{2}, Scale: 1},
			}},
		},
	}
	registers := regMap(map[uint16]uint16{1: 1830, 2: 1})
	got := Build(registers, def, []string{"time_of_use"})
	if got.TimeOfUse == nil || len(got.TimeOfUse.Slots) != 1 {
		t.Fatalf("expected one slot: %+v", got.TimeOfUse)
	}
	slot := got.TimeOfUse.Slots[0]
	if slot.TimeMinutes != 18*60+30 {
		t.Errorf("got %v minutes, want %v", slot.TimeMinutes, 18*60+30)
	}
	if slot.Mode == nil || *slot.Mode != ModeGridCharge {
		t.Errorf("got mode %v, want grid_charge", slot.Mode)
	}
}
