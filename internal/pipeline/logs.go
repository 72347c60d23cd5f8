package pipeline

import (
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/storage"
)

// AddLog appends an event to the activity log, stamping its id and time.
func (d *Dashboard) AddLog(actor model.Actor, action, entity, detail string) (model.LogEvent, error) {
	e := model.LogEvent{
		ID:        d.newLogID(),
		Timestamp: d.now().UTC(),
		Actor:     actor,
		Action:    action,
		Entity:    entity,
		Detail:    detail,
	}
	if err := d.logs.AppendLog(e); err != nil {
		return model.LogEvent{}, fmt.Errorf("appending log: %w", err)
	}
	d.metrics.RecordLog(action)
	return e, nil
}

// record is AddLog for internal operations; a failed write is logged and
// does not fail the operation that triggered it.
func (d *Dashboard) record(actor model.Actor, action, entity, detail string) {
	if _, err := d.AddLog(actor, action, entity, detail); err != nil {
		d.logger.Warn("activity log write failed", "action", action, "error", err)
		return
	}
	d.logger.Info(action, "actor", string(actor), "detail", detail)
}

// Logs returns events newest first. A non-positive limit returns all.
func (d *Dashboard) Logs(limit, offset int) ([]model.LogEvent, error) {
	events, err := d.logs.ListLogs(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	if events == nil {
		events = []model.LogEvent{}
	}
	return events, nil
}

// Log returns a single event by id.
func (d *Dashboard) Log(id string) (model.LogEvent, error) {
	e, err := d.logs.GetLog(id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.LogEvent{}, fmt.Errorf("log %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.LogEvent{}, fmt.Errorf("reading log %s: %w", id, err)
	}
	return e, nil
}

// ClearLogs empties the activity log. Clearing is not itself logged.
func (d *Dashboard) ClearLogs() (int64, error) {
	n, err := d.logs.ClearLogs()
	if err != nil {
		return 0, fmt.Errorf("clearing logs: %w", err)
	}
	return n, nil
}

func (d *Dashboard) newLogID() string {
	d.idMu.Lock()
	defer d.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(d.now()), d.entropy).String()
}
