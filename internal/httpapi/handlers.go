package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/traffic-light-server/internal/controller"
	"github.com/DoyleJ11/traffic-light-server/internal/engine"
	"github.com/DoyleJ11/traffic-light-server/internal/journal"
	"github.com/DoyleJ11/traffic-light-server/internal/patterns"
	"github.com/DoyleJ11/traffic-light-server/internal/types"
	wire "github.com/DoyleJ11/traffic-light-server/pkg/types"
)

const (
	maxBodyBytes        = 1 << 16
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// TrafficStatus is polled by the microcontroller, so it only reads the
// published snapshot and never waits on the controller.
func TrafficStatus(c *controller.Controller, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := types.Status(c.Snapshot())
		log.Debug("status polled",
			zap.String("remote", r.RemoteAddr),
			zap.String("mode", status.Mode),
			zap.String("color", status.Color))
		writeJSON(w, http.StatusOK, status)
	}
}

func ControlTraffic(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.CommandRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, wire.CommandResponse{Message: err.Error()})
			return
		}

		cmd, err := engine.ModeCommand(req.Mode, req.Color)
		if err != nil {
			c.Reject(err)
			writeJSON(w, http.StatusBadRequest, wire.CommandResponse{
				Message: fmt.Sprintf("%v. Mode: manual/auto/off, Color: red/yellow/green/off", err),
			})
			return
		}

		snap, err := c.Execute(r.Context(), cmd)
		if err != nil {
			writeJSON(w, statusFor(err), wire.CommandResponse{Message: err.Error()})
			return
		}

		status := types.Status(snap)
		writeJSON(w, http.StatusOK, wire.CommandResponse{
			Success: true,
			Status:  &status,
			Message: commandMessage(cmd),
		})
	}
}

func UpdateSettings(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.SettingsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, wire.SettingsResponse{Message: err.Error()})
			return
		}

		patch, err := types.PatchFromRequest(req)
		if err != nil {
			c.Reject(err)
			writeJSON(w, http.StatusBadRequest, wire.SettingsResponse{Message: err.Error()})
			return
		}

		snap, err := c.UpdateSettings(r.Context(), patch)
		if err != nil {
			writeJSON(w, statusFor(err), wire.SettingsResponse{Message: err.Error()})
			return
		}

		settings := types.Settings(snap.State.Settings)
		writeJSON(w, http.StatusOK, wire.SettingsResponse{
			Success:  true,
			Settings: &settings,
			Message:  "Settings updated",
		})
	}
}

func Emergency(c *controller.Controller, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The override must not be lost because the caller hung up.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
		defer cancel()

		snap, err := c.Emergency(ctx)
		if err != nil {
			log.Error("emergency override failed", zap.Error(err))
			writeJSON(w, statusFor(err), wire.CommandResponse{Message: "Emergency activation failed: " + err.Error()})
			return
		}

		log.Warn("emergency override", zap.String("remote", r.RemoteAddr))
		status := types.Status(snap)
		writeJSON(w, http.StatusOK, wire.CommandResponse{
			Success: true,
			Status:  &status,
			Message: "Emergency mode activated - all RED",
		})
	}
}

func Health(c *controller.Controller, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts := now()
		writeJSON(w, http.StatusOK, wire.HealthResponse{
			Status:        "healthy",
			Timestamp:     ts,
			Uptime:        ts.Sub(c.Stats().StartedAt).Seconds(),
			TrafficStatus: types.Status(c.Snapshot()),
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Stats(c *controller.Controller, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts := now()
		stats := c.Stats()
		status := types.Status(c.Snapshot())
		writeJSON(w, http.StatusOK, wire.StatsResponse{
			CurrentStatus:    status,
			Uptime:           ts.Sub(stats.StartedAt).Seconds(),
			LastUpdate:       status.LastUpdate,
			ServerTime:       ts,
			AutoModeActive:   status.Mode == string(engine.ModeAuto),
			TotalModeChanges: stats.ModeChanges,
			AutoCycles:       stats.AutoCycles,
			RejectedCommands: stats.RejectedCommands,
		})
	}
}

func ListPatterns(set *patterns.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.Patterns(set))
	}
}

func ApplyPattern(c *controller.Controller, set *patterns.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := set.Get(chi.URLParam(r, "key"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, wire.SettingsResponse{Message: err.Error()})
			return
		}
		patch, err := p.Settings()
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, wire.SettingsResponse{Message: err.Error()})
			return
		}

		snap, err := c.UpdateSettings(r.Context(), patch)
		if err != nil {
			writeJSON(w, statusFor(err), wire.SettingsResponse{Message: err.Error()})
			return
		}

		settings := types.Settings(snap.State.Settings)
		writeJSON(w, http.StatusOK, wire.SettingsResponse{
			Success:  true,
			Settings: &settings,
			Message:  fmt.Sprintf("Pattern %q applied", p.Name),
		})
	}
}

func History(store journal.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		entries, err := store.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, "failed to read history", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, types.History(entries))
	}
}

func commandMessage(cmd engine.Command) string {
	switch cmd.Type {
	case engine.CmdManual:
		return fmt.Sprintf("Traffic light set to %s", strings.ToUpper(string(cmd.Color)))
	case engine.CmdAuto:
		return "Auto mode activated"
	case engine.CmdOff:
		return "All lights off"
	}
	return "OK"
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
