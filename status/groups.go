package status

import "github.com/devskill-org/solarstatus/profile"

// subsystemGroupNames is the spec.md §6 subsystem → upstream
// profile-group-name mapping: group names are matched case-sensitively
// as authored by the profile.
var subsystemGroupNames = map[string][]string{
	"battery":      {"Battery", "Battery Energy", "Battery Meter", "Meter", "meter"},
	"grid":         {"Grid", "grid", "AC", "Power Grid", "GridEPS", "Active Power", "Apparent Power", "Reactive Power", "Power Factor", "Voltage", "Current", "Frequency", "Meter", "meter"},
	"pv":           {"PV", "Solar", "DC", "InverterDC", "Production", "Meter", "meter"},
	"load":         {"Load", "load", "Consumption", "Electricity Consumption", "Output", "output", "Meter", "meter"},
	"inverter":     {"Info", "info", "Inverter", "Device", "Inverter Information", "InverterAC", "InverterStatus", "Control", "Status", "State"},
	"generator":    {"Generator", "Gen", "Generator/SmartLoad/Microinverter", "Meter", "meter"},
	"ups":          {"UPS", "Backup", "Output", "output", "EPS", "GridEPS"},
	"bms":          bmsGroupNames(),
	"time_of_use":  {"Time of Use", "Schedule", "TOU", "Timed", "Work Mode"},
	"settings":     {"Settings", "Parameters", "Configuration", "Work Mode", "Grid Parameters", "Passive mode settings"},
	"alerts":       {"Alerts", "Alarm", "Fault", "faults", "State"},
	"computed":     {"Computed", "Calculated", "Losses", "Other", "Energy"},
}

func bmsGroupNames() []string {
	names := []string{"BMS", "Battery Management", "Battery Module"}
	for i := 1; i <= 8; i++ {
		names = append(names, "Battery "+itoa(i))
	}
	return names
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return string(rune('0'+i/10)) + string(rune('0'+i%10))
}

// groupNameSet builds a case-sensitive membership set for ItemsInGroups.
func groupNameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// collect returns every sensor item belonging to the given subsystem's
// mapped profile groups, deduplicated by normalized_id (first wins).
func collect(def *profile.InverterDefinition, subsystem string) []profile.SensorItem {
	names, ok := subsystemGroupNames[subsystem]
	if !ok {
		return nil
	}
	return def.ItemsInGroups(groupNameSet(names))
}

// ItemsForSubsystems returns the union of sensor items (deduplicated by
// normalized_id, first wins) backing the given subsystem names. The
// orchestrator uses this to collect the same items Build will later
// assemble, so register batching reflects exactly what the builder reads.
func ItemsForSubsystems(def *profile.InverterDefinition, subsystems []string) []profile.SensorItem {
	names := make(map[string]bool)
	for _, s := range subsystems {
		for _, n := range subsystemGroupNames[s] {
			names[n] = true
		}
	}
	return def.ItemsInGroups(names)
}
