package obs

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildOnce sync.Once

	audientBuild = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audient_build_info",
			Help: "Constant 1 labelled with the running audient build.",
		},
		[]string{"version", "commit", "go_version"},
	)
	audientStarted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audient_start_time_seconds",
		Help: "Unix time the API process started serving.",
	})
)

// InitBuildInfo publishes the build labels and the process start time.
// Repeated calls only update the values.
func InitBuildInfo(version, commit string) {
	buildOnce.Do(func() {
		prometheus.MustRegister(audientBuild, audientStarted)
	})
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	audientBuild.WithLabelValues(version, commit, runtime.Version()).Set(1)
	audientStarted.Set(float64(time.Now().Unix()))
}
