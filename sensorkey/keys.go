// Package sensorkey is the decoupling layer between heterogeneous
// vendor sensor naming and the uniform SolarStatus output model: each
// domain-model slot binds to one primary key plus an ordered list of
// alternative keys, and resolution tries primary first, then each
// alternative in order.
package sensorkey

import "fmt"

// Key names one logical value in the SensorValues map built by the
// status builder, with fallback names tried if the primary is absent.
type Key struct {
	Primary      string
	Alternatives []string
}

// New builds a Key with no alternatives.
func New(primary string) Key { return Key{Primary: primary} }

// NewWithAlternatives builds a Key with the given fallback names,
// consulted in order after the primary.
func NewWithAlternatives(primary string, alternatives ...string) Key {
	return Key{Primary: primary, Alternatives: alternatives}
}

// Lookup resolves this key against a normalized_id -> value map: the
// primary name is tried first, then each alternative in order. The
// first present name wins.
func (k Key) Lookup(values map[string]float64) (float64, bool) {
	if v, ok := values[k.Primary]; ok {
		return v, true
	}
	for _, alt := range k.Alternatives {
		if v, ok := values[alt]; ok {
			return v, true
		}
	}
	return 0, false
}

// LookupString is Lookup's counterpart for the string-valued sensor
// map (serials, firmware versions, decoded lookup labels).
func (k Key) LookupString(values map[string]string) (string, bool) {
	if v, ok := values[k.Primary]; ok {
		return v, true
	}
	for _, alt := range k.Alternatives {
		if v, ok := values[alt]; ok {
			return v, true
		}
	}
	return "", false
}

// Battery keys.
var (
	BatterySOC            = NewWithAlternatives("battery_soc", "battery")
	BatteryVoltage         = New("battery_voltage")
	BatteryPower           = New("battery_power")
	BatteryCurrent         = New("battery_current")
	BatteryTemperature     = New("battery_temperature")
	BatterySOH             = New("battery_soh")
	BatteryDailyCharge     = New("battery_daily_charge")
	BatteryDailyDischarge  = New("battery_daily_discharge")
	BatteryTotalCharge     = New("battery_total_charge")
	BatteryTotalDischarge  = New("battery_total_discharge")
)

// Grid keys.
var (
	GridTotalPower   = NewWithAlternatives("grid_total_power", "grid_power")
	GridVoltage      = New("grid_voltage")
	GridCurrent      = New("grid_current")
	GridFrequency    = New("grid_frequency")
	GridPowerFactor  = New("grid_power_factor")
	GridDailyImport  = New("grid_daily_import")
	GridDailyExport  = New("grid_daily_export")
	GridTotalImport  = New("grid_total_import")
	GridTotalExport  = New("grid_total_export")

	ExternalCTTotalPower = New("external_ct_total_power")
)

// GridPhaseVoltage/Current/Power return per-phase (1..3) keys, e.g.
// "grid_l1_voltage".
func GridPhaseVoltage(phase int) Key { return New(fmt.Sprintf("grid_l%d_voltage", phase)) }
func GridPhaseCurrent(phase int) Key { return New(fmt.Sprintf("grid_l%d_current", phase)) }
func GridPhasePower(phase int) Key   { return New(fmt.Sprintf("grid_l%d_power", phase)) }

func ExternalCTPhasePower(phase int) Key   { return New(fmt.Sprintf("external_ct_l%d_power", phase)) }
func ExternalCTPhaseCurrent(phase int) Key { return New(fmt.Sprintf("external_ct_l%d_current", phase)) }

// PV keys.
var (
	TotalPVPower       = New("total_pv_power")
	PVDailyProduction  = New("pv_daily_production")
	PVTotalProduction  = New("pv_total_production")
)

func PVStringPower(i int) Key   { return New(fmt.Sprintf("pv%d_power", i)) }
func PVStringVoltage(i int) Key { return New(fmt.Sprintf("pv%d_voltage", i)) }
func PVStringCurrent(i int) Key { return New(fmt.Sprintf("pv%d_current", i)) }

// Load keys.
var (
	LoadTotalPower         = NewWithAlternatives("load_total_power", "load_power")
	LoadFrequency          = New("load_frequency")
	LoadDailyConsumption   = New("load_daily_consumption")
	LoadTotalConsumption   = New("load_total_consumption")
)

func LoadPhasePower(phase int) Key { return New(fmt.Sprintf("load_l%d_power", phase)) }

// Inverter keys.
var (
	DeviceSerialNumber  = New("device_serial_number")
	DeviceFirmwareVersion = New("device_firmware_version")
	DeviceState         = New("device")
	DeviceAlarm         = New("device_alarm")
	DeviceFault         = New("device_fault")
	DeviceTime          = New("device_time")
)

// Generator keys.
var (
	GeneratorTotalPower = NewWithAlternatives("generator_total_power", "generator_power")
)

// UPS keys.
var (
	UPSTotalPower = NewWithAlternatives("ups_total_power", "ups_power")
)

func UPSPhaseVoltage(phase int) Key { return New(fmt.Sprintf("ups_l%d_voltage", phase)) }
func UPSPhaseCurrent(phase int) Key { return New(fmt.Sprintf("ups_l%d_current", phase)) }
func UPSPhasePower(phase int) Key   { return New(fmt.Sprintf("ups_l%d_power", phase)) }

// BMS keys, parameterized by the upstream unit prefix ("battery_1",
// "battery_2", or the "battery_bms" fallback).
func BMSSOC(unit string) Key          { return New(unit + "_soc") }
func BMSVoltage(unit string) Key      { return New(unit + "_voltage") }
func BMSCurrent(unit string) Key      { return New(unit + "_current") }
func BMSCellMinVoltage(unit string) Key { return New(unit + "_cell_min_voltage") }
func BMSCellMaxVoltage(unit string) Key { return New(unit + "_cell_max_voltage") }
func BMSCellCount(unit string) Key    { return New(unit + "_cell_count") }
func BMSTemperature(unit string) Key  { return New(unit + "_temperature") }

// BMSUnits lists the probe order for BMS unit assembly (spec.md §4.4):
// battery_1, battery_2, falling back to battery_bms.
var BMSUnits = []string{"battery_1", "battery_2"}

const BMSFallbackUnit = "battery_bms"

// Time-of-use keys, parameterized by slot (1..6).
func TOUSlotTimeMinutes(slot int) Key    { return New(fmt.Sprintf("program_%d_time", slot)) }
func TOUSlotChargingFlag(slot int) Key   { return New(fmt.Sprintf("program_%d_charging", slot)) }
func TOUSlotTargetSOC(slot int) Key      { return New(fmt.Sprintf("program_%d_target_soc", slot)) }
func TOUSlotChargePower(slot int) Key    { return New(fmt.Sprintf("program_%d_charge_power", slot)) }
func TOUSlotChargeVoltage(slot int) Key  { return New(fmt.Sprintf("program_%d_charge_voltage", slot)) }

var TOUWeeklySchedule = New("weekly_schedule")
