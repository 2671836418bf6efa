package process

// PriorityClass is a platform-neutral process priority. On Windows it
// maps onto priority classes, on Unix onto niceness.
type PriorityClass int

// PriorityNormal is the zero value, so an unconfigured instance runs
// at the default scheduler priority.
const (
	PriorityNormal PriorityClass = iota
	PriorityIdle
	PriorityBelowNormal
	PriorityAboveNormal
	PriorityHigh
	PriorityRealtime
)

// Resources carries the per-instance scheduling knobs applied to a live
// process right after it starts.
type Resources struct {
	// Priority class for the process scheduler.
	Priority PriorityClass `json:"priority"`

	// CPUAffinity is a CPU bitmask; zero means all CPUs.
	CPUAffinity uint64 `json:"cpuAffinity,omitempty"`
}
