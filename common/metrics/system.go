package metrics

import (
	"os"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// BuildInfo is a constant 1 gauge labelled with where the process runs
var BuildInfo = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "forecaster",
	Name:      "build_info",
	Help:      "Process metadata; value is always 1",
}, []string{"service", "go_version", "os", "arch", "container"})

// RecordBuildInfo sets the build_info gauge for a service
func RecordBuildInfo(service string) {
	_, container := detectContainer()
	if container == "" {
		container = "none"
	}
	BuildInfo.WithLabelValues(service, runtime.Version(), runtime.GOOS, runtime.GOARCH, container).Set(1)
}

// detectContainer checks if running in a container
func detectContainer() (bool, string) {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "docker"
	}

	if _, err := os.Stat("/var/run/secrets/kubernetes.io"); err == nil {
		return true, "kubernetes"
	}

	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		switch {
		case strings.Contains(content, "kubepods"):
			return true, "kubernetes"
		case strings.Contains(content, "docker"):
			return true, "docker"
		case strings.Contains(content, "containerd"):
			return true, "containerd"
		}
	}

	return false, ""
}
