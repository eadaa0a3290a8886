package logx

import "github.com/0202alcc/luvatrix/internal/share"

// Domain field keys shared by every Luvatrix subsystem that logs through
// this package. Kept as named constants (instead of ad-hoc string
// literals at each call site) so a JSONL/JSON-formatted sink always
// emits the same key for the same concept.
const (
	FieldEventID    = "event_id"
	FieldRevision   = "revision"
	FieldSensorType = "sensor_type"
	FieldCapability = "capability"
	FieldAppID      = "app_id"
)

// EventFields tags a log entry with the commit event that produced it
// (matrix.CommitEvent.Revision and the originating write batch).
func EventFields(revision uint64) share.Fields {
	return share.Fields{FieldRevision: revision}
}

// SensorFields tags a log entry with the sensor type a reading or
// consent/safety decision concerns.
func SensorFields(sensorType string) share.Fields {
	return share.Fields{FieldSensorType: sensorType}
}

// CapabilityFields tags a log entry with the manifest capability an
// app requested or was granted/denied.
func CapabilityFields(capability string) share.Fields {
	return share.Fields{FieldCapability: capability}
}

// AppFields tags a log entry with the running app's manifest AppID.
func AppFields(appID string) share.Fields {
	return share.Fields{FieldAppID: appID}
}

// SensorEventFields combines an app_id with a sensor_type, the shape
// most sensor manager log lines need.
func SensorEventFields(appID, sensorType string) share.Fields {
	return share.Fields{FieldAppID: appID, FieldSensorType: sensorType}
}
