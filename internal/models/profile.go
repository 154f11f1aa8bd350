package models

// WorkerMode defines how many instances run a worker.
type WorkerMode string

const (
	WorkerModeDisabled  WorkerMode = "disabled"
	WorkerModeSingleton WorkerMode = "singleton" // holds the cache lock while running
	WorkerModeAll       WorkerMode = "all"
)

type Profile struct {
	Name       string
	HTTPServer bool
	Workers    WorkerConfig
}

type WorkerConfig struct {
	Notifications    WorkerMode
	GarbageCollector WorkerMode
}

// AnyEnabled returns true if any worker is enabled.
func (w WorkerConfig) AnyEnabled() bool {
	return w.Notifications != WorkerModeDisabled || w.GarbageCollector != WorkerModeDisabled
}

// DeliversLocally reports whether codes published by this process are also
// consumed by it.
func (p Profile) DeliversLocally() bool {
	return p.HTTPServer && p.Workers.Notifications != WorkerModeDisabled
}
