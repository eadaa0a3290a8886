package sensor

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// GopsutilThermalProvider reads the host's highest reported sensor
// temperature via gopsutil. It is an optional reference adapter, not
// wired into any default Manager construction.
type GopsutilThermalProvider struct{}

func (GopsutilThermalProvider) Read() (any, string, error) {
	temps, err := host.SensorsTemperatures()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSensorReadUnavailable, err)
	}
	if len(temps) == 0 {
		return nil, "", ErrSensorReadUnavailable
	}
	max := temps[0].Temperature
	for _, t := range temps[1:] {
		if t.Temperature > max {
			max = t.Temperature
		}
	}
	return max, "celsius", nil
}

// GopsutilCPULoadProvider reports CPU utilization as a stand-in for the
// power.voltage_current reading where no battery/voltage facility is
// exposed by the host.
type GopsutilCPULoadProvider struct{}

func (GopsutilCPULoadProvider) Read() (any, string, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSensorReadUnavailable, err)
	}
	if len(percents) == 0 {
		return nil, "", ErrSensorReadUnavailable
	}
	return percents[0], "percent", nil
}
