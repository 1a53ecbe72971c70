package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged   bool
	NewLogLevel       LogLevel
	ReferencesChanged bool
	ReferenceChanges  []ReferenceDiff
	RepairChanged     bool
}

// ReferenceDiff describes what changed for a single named reference
// expression between two configs.
type ReferenceDiff struct {
	Name       string
	Expression string
	Added      bool
	Removed    bool
	Changed    bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart: log level,
// reference expressions, and repair tuning. Storage and cache changes
// require a restart and are deliberately not reported.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Repair != new.Repair {
		d.RepairChanged = true
	}

	for name, expr := range new.References {
		prev, ok := old.References[name]
		switch {
		case !ok:
			d.ReferenceChanges = append(d.ReferenceChanges, ReferenceDiff{
				Name: name, Expression: expr, Added: true,
			})
		case prev != expr:
			d.ReferenceChanges = append(d.ReferenceChanges, ReferenceDiff{
				Name: name, Expression: expr, Changed: true,
			})
		}
	}
	for name, expr := range old.References {
		if _, ok := new.References[name]; !ok {
			d.ReferenceChanges = append(d.ReferenceChanges, ReferenceDiff{
				Name: name, Expression: expr, Removed: true,
			})
		}
	}
	d.ReferencesChanged = len(d.ReferenceChanges) > 0

	return d
}
