package configuration

import (
	"fmt"
	"slices"

	"stepup/internal/models"
)

const (
	ProfileDefault = "default"
	ProfileAPI     = "api"
	ProfileWorker  = "worker"
)

// Profiles splits the service into the HTTP API, which issues challenges and
// publishes code deliveries, and the workers that deliver codes and collect
// expired challenges. The default profile runs both in one process.
var Profiles = map[string]models.Profile{
	ProfileDefault: {
		Name:       ProfileDefault,
		HTTPServer: true,
		Workers: models.WorkerConfig{
			Notifications:    models.WorkerModeAll,
			GarbageCollector: models.WorkerModeSingleton,
		},
	},
	ProfileAPI: {
		Name:       ProfileAPI,
		HTTPServer: true,
		Workers: models.WorkerConfig{
			Notifications:    models.WorkerModeDisabled,
			GarbageCollector: models.WorkerModeDisabled,
		},
	},
	ProfileWorker: {
		Name: ProfileWorker,
		Workers: models.WorkerConfig{
			Notifications:    models.WorkerModeAll,
			GarbageCollector: models.WorkerModeSingleton,
		},
	},
}

// ResolveProfile returns the named profile, or the default one for an empty
// name. A profile that publishes or consumes code deliveries without doing
// both needs a transport shared between processes.
func ResolveProfile(name string, eventsType string) (models.Profile, error) {
	if name == "" {
		name = ProfileDefault
	}

	profile, ok := Profiles[name]
	if !ok {
		names := make([]string, 0, len(Profiles))
		for n := range Profiles {
			names = append(names, n)
		}
		slices.Sort(names)
		return models.Profile{}, fmt.Errorf("unknown profile %q, expected one of %v", name, names)
	}

	if eventsType == ProviderMemory && !profile.DeliversLocally() {
		return models.Profile{}, fmt.Errorf("profile %q needs a shared events transport, %s only reaches the same process", name, ProviderMemory)
	}

	return profile, nil
}
