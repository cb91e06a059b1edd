package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// DeviceView is the JSON form of a registered device.
type DeviceView struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Name         string         `json:"name,omitempty"`
	Capabilities []string       `json:"capabilities"`
	State        map[string]any `json:"state,omitempty"`
}

func newDeviceView(id iot.DeviceID, d iot.Device) DeviceView {
	kinds := d.Capabilities().Kinds()
	caps := make([]string, len(kinds))
	for i, k := range kinds {
		caps[i] = string(k)
	}

	v := DeviceView{ID: string(id), Type: "unknown", Capabilities: caps}
	if desc, ok := d.(iot.Describer); ok {
		v.Type = desc.Type()
		v.Name = desc.Name()
		v.State = desc.State()
	}
	return v
}

// handleListDevices returns all devices in registration order.
//
// Query parameters:
//   - type: filter by device type (hue_light, smart_speaker, ...)
//   - capability: filter by supported command kind
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	typeFilter := r.URL.Query().Get("type")
	capFilter := iot.CommandKind(r.URL.Query().Get("capability"))

	entries := s.service.Registry().List()
	devices := make([]DeviceView, 0, len(entries))
	for _, e := range entries {
		if capFilter != "" && !e.Device.Capabilities().Supports(capFilter) {
			continue
		}
		v := newDeviceView(e.ID, e.Device)
		if typeFilter != "" && v.Type != typeFilter {
			continue
		}
		devices = append(devices, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := iot.DeviceID(chi.URLParam(r, "id"))

	d, err := s.service.Registry().Resolve(id)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, newDeviceView(id, d))
}

// handleDeviceStats returns registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.service.Registry().GetStats()

	byCommand := make(map[string]int, len(stats.ByCommand))
	for k, n := range stats.ByCommand {
		byCommand[string(k)] = n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_devices": stats.TotalDevices,
		"by_type":       stats.ByType,
		"by_command":    byCommand,
		"command_kinds": commandKindNames(),
	})
}

// CommandRequest is one message addressed to a device.
type CommandRequest struct {
	Kind    string  `json:"kind"`
	Payload *string `json:"payload,omitempty"`
}

func (c CommandRequest) message(target iot.DeviceID) (iot.Message, error) {
	kind, err := iot.ParseCommandKind(c.Kind)
	if err != nil {
		return iot.Message{}, err
	}
	if c.Payload != nil {
		return iot.NewMessageWithPayload(target, kind, *c.Payload), nil
	}
	return iot.NewMessage(target, kind), nil
}

// handleDispatch delivers one command to the device outside any program.
// The response is written after the device has executed the command.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	id := iot.DeviceID(chi.URLParam(r, "id"))

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	msg, err := req.message(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if err := s.service.Dispatcher().Dispatch(r.Context(), msg); err != nil {
		writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": string(id),
		"command":   string(msg.Kind),
		"status":    "ok",
	})
}

func commandKindNames() []string {
	kinds := iot.AllCommandKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	sort.Strings(names)
	return names
}
