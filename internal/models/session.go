package models

import "time"

// DeviceSession describes one device heartbeating against a workspace. The
// device id is persisted per installation; the session id is ephemeral per
// process. LastSeen is set by the server on every heartbeat.
type DeviceSession struct {
	DeviceID   string    `json:"deviceId"`
	SessionID  string    `json:"sessionId"`
	DeviceName string    `json:"deviceName"`
	Client     string    `json:"client"` // cli, desktop, web
	OS         string    `json:"os"`
	LastSeen   time.Time `json:"lastSeen"`
}
