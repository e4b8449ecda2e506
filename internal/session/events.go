package session

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/wyzesense/dongled/internal/events"
	"github.com/wyzesense/dongled/internal/protocol"
)

// installBuiltinHandlers registers the permanent handlers for unsolicited
// dongle notifications: sync-time, event log, and sensor alarm, plus the
// SENSOR_FOUND side channel enumeration feeds. These are installed once at
// Open and never removed for the life of the Handle.
func (h *Handle) installBuiltinHandlers() {
	h.table.install(protocol.CmdNotifySyncTime, h.handleSyncTime)
	h.table.install(protocol.CmdNotifyEventLog, h.handleEventLog)
	h.table.install(protocol.CmdNotifySensorAlarm, h.handleSensorAlarm)
	h.table.installSensorFound(h.handleSensorFound)
}

// handleSensorFound is the SENSOR_FOUND side-channel handler: List's
// doMulti callback offers each enumerated MAC here via
// handlerTable.notifySensorFound, and it surfaces as a sensor_found event to
// the caller.
func (h *Handle) handleSensorFound(pkt protocol.Packet) {
	h.emit(events.EventSensorFound, events.SensorFoundData{MAC: fmt.Sprintf("%x", pkt.Payload)})
}

// handleSyncTime answers the dongle's time announcement with the current
// epoch in milliseconds. The standard ASYNC_ACK for 0x5332 has already been
// written by the dispatcher before this handler runs; the SYNC_TIME_ACK
// reply is additional, dongle-specific protocol, not a substitute for it.
func (h *Handle) handleSyncTime(pkt protocol.Packet) {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, uint64(time.Now().UnixMilli()))
	if err := h.writeRaw(protocol.NewPacket(protocol.CmdSyncTimeAck, payload)); err != nil {
		h.logger.Warn("session: sync_time_ack: %v", err)
	}
}

// handleEventLog decodes a dongle-originated log record and surfaces it to
// the caller.
func (h *Handle) handleEventLog(pkt protocol.Packet) {
	if len(pkt.Payload) < 9 {
		h.logger.Debug("session: NOTIFY_EVENT_LOG payload too short: %d bytes", len(pkt.Payload))
		return
	}
	ts := binary.BigEndian.Uint64(pkt.Payload[0:8])
	msgLen := int(pkt.Payload[8])
	if 9+msgLen > len(pkt.Payload) {
		h.logger.Debug("session: NOTIFY_EVENT_LOG message length %d exceeds payload", msgLen)
		return
	}
	msg := string(pkt.Payload[9 : 9+msgLen])
	h.emit(events.EventLog, events.LogData{Message: msg, TimestampMs: int64(ts)})
}

// alarmTypeStateChange is the alarm_type value that marks a sensor alarm
// payload as carrying a meaningful open/closed or active/inactive state,
// rather than a raw diagnostic event.
const alarmTypeStateChange = 162

// handleSensorAlarm decodes a NOTIFY_SENSOR_ALARM payload and emits either a
// state event (alarm_type==162 with a meaningful
// state bit) or a raw-alarm event for everything else.
func (h *Handle) handleSensorAlarm(pkt protocol.Packet) {
	p := pkt.Payload
	if len(p) < 26 {
		h.logger.Debug("session: NOTIFY_SENSOR_ALARM payload too short: %d bytes", len(p))
		return
	}

	ts := int64(binary.BigEndian.Uint64(p[0:8]))
	alarmType := int(p[8])
	mac := fmt.Sprintf("%x", p[9:17])
	sensorTypeRaw := p[17]
	battery := int(p[19])
	state := p[22]
	signal := int(p[25])

	sensorType := "door"
	if sensorTypeRaw == 2 {
		sensorType = "motion"
	}

	if alarmType == alarmTypeStateChange && (state == 0 || state == 1) {
		stateStr := stateLabel(sensorType, state)
		h.emit(events.EventSensorState, events.SensorStateData{
			MAC:         mac,
			SensorType:  sensorType,
			State:       stateStr,
			Battery:     battery,
			Signal:      signal,
			TimestampMs: ts,
		})
		return
	}

	h.emit(events.EventRawAlarm, events.RawAlarmData{
		MAC:         mac,
		AlarmType:   alarmType,
		SensorType:  int(sensorTypeRaw),
		Battery:     battery,
		Signal:      signal,
		TimestampMs: ts,
	})
}

// stateLabel translates the raw state bit to the sensor-type-appropriate
// logical label: open/closed for door sensors, active/inactive for motion.
func stateLabel(sensorType string, state byte) string {
	if sensorType == "motion" {
		if state == 1 {
			return "active"
		}
		return "inactive"
	}
	if state == 1 {
		return "open"
	}
	return "closed"
}
