// Package status assembles decoded sensor values and raw profile
// items into SolarStatus, the uniform multi-vendor energy-system
// snapshot.
package status

import "time"

// SolarStatus is an immutable snapshot built per read. Every
// subsystem field is optional; absent subsystems are nil.
type SolarStatus struct {
	Timestamp  time.Time
	Battery    *Battery
	Grid       *Grid
	PV         *PV
	Load       *Load
	Inverter   *Inverter
	Generator  *Generator
	UPS        *UPS
	BMS        []BMSUnit
	TimeOfUse  *TimeOfUse
}

// Battery is the traction/storage battery pack, one per inverter.
type Battery struct {
	SOC                int
	Voltage            float64
	Power              int // >0 discharging, <0 charging (profile sign pass-through)
	Current            float64
	Temperature        *float64
	SOH                *int
	DailyCharge        *float64
	DailyDischarge     *float64
	TotalCharge        *float64
	TotalDischarge     *float64
}

// Phase is one AC phase's voltage/current/power triple.
type Phase struct {
	Voltage *float64
	Current *float64
	Power   *float64
}

// ExternalCT is a grid-entry current-transformer block, separate from
// the inverter's internal sensors.
type ExternalCT struct {
	TotalPower float64
	Phases     map[int]Phase
}

// Grid is the point-of-interconnection AC measurement. Power > 0 means
// importing, < 0 means exporting.
type Grid struct {
	TotalPower     int
	Phases         map[int]Phase
	Voltage        *float64 // single-phase fallback
	Current        *float64
	Frequency      *float64
	PowerFactor    *float64
	DailyImport    *float64
	DailyExport    *float64
	TotalImport    *float64
	TotalExport    *float64
	ExternalCT     *ExternalCT
}

// PVString is one MPPT input channel.
type PVString struct {
	ID      int
	Voltage float64
	Current float64
	Power   int
}

// PV is the photovoltaic production subsystem.
type PV struct {
	Strings          []PVString
	TotalPower       float64
	DailyProduction  *float64
	TotalProduction  *float64
}

// Load is the site's consumption subsystem. Power is always >= 0.
type Load struct {
	TotalPower        int
	Phases            map[int]float64 // phase -> power
	Frequency         *float64
	DailyConsumption  *float64
	TotalConsumption  *float64
}

// InverterStatusState is the normalized device-state enum.
type InverterStatusState string

const (
	StatusStandby InverterStatusState = "standby"
	StatusRunning InverterStatusState = "running"
	StatusFault   InverterStatusState = "fault"
	StatusUnknown InverterStatusState = "unknown"
)

// Alarm is one set alarm/fault bit with its profile-declared description.
type Alarm struct {
	Bit         int
	Description string
}

// Inverter is the device-identity and status subsystem.
type Inverter struct {
	SerialNumber    string
	Model           string
	FirmwareVersion string
	Status          InverterStatusState
	Alarms          []Alarm
	Faults          []Alarm
	DeviceTime      *time.Time
	Values          map[string]float64 // any numeric sensor from the inverter groups, keyed by normalized_id
}

// Generator is a backup/auxiliary generator. Power is always >= 0.
type Generator struct {
	TotalPower float64
	IsRunning  bool
}

// UPSMode is the derived emergency-power-output mode.
type UPSMode string

const (
	UPSModeBattery UPSMode = "battery"
	UPSModeStandby UPSMode = "standby"
	UPSModeBypass  UPSMode = "bypass"
)

// UPS is the emergency/uninterruptible-power output subsystem.
type UPS struct {
	TotalPower float64
	Phases     map[int]Phase
	Mode       *UPSMode
}

// BMSUnit is one battery-management-system module's cell-level detail.
type BMSUnit struct {
	Unit            string // "battery_1", "battery_2", or the "battery_bms" fallback
	SOC             float64
	Voltage         float64
	Current         float64
	CellMinVoltage  *float64
	CellMaxVoltage  *float64
	VoltageDeltaMV  *float64
	CellCount       int
	Temperature     *float64
}

// TimeOfUseMode is the derived schedule-slot mode.
type TimeOfUseMode string

const (
	ModeGridCharge       TimeOfUseMode = "grid_charge"
	ModeSelfConsumption  TimeOfUseMode = "self_consumption"
)

// TimeOfUseSlot is one programmable schedule entry.
type TimeOfUseSlot struct {
	Slot            int
	TimeMinutes     float64
	IsEnabled       bool
	Mode            *TimeOfUseMode
	TargetSOC       *float64
	ChargePower     *float64
	ChargeVoltage   *float64
}

// TimeOfUse is the time-of-use schedule subsystem.
type TimeOfUse struct {
	Slots           []TimeOfUseSlot
	WeeklySchedule  *uint8 // bit 0 = Monday .. bit 6 = Sunday
}
