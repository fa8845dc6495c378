package wizard

import "detailing-booking/internal/model"

// Snapshot copies the wizard into a persistable row for session id.
func (w *Wizard) Snapshot(id string) model.WizardSession {
	row := model.WizardSession{
		ID:          id,
		CurrentStep: string(w.current),
		Location:    w.sel.Location,
		Service:     w.sel.Service,
		ScheduledAt: w.sel.Time,
	}
	if w.sel.Info != nil {
		row.HasInfo = true
		row.Name = w.sel.Info.Name
		row.Phone = w.sel.Info.Phone
		row.Email = w.sel.Info.Email
	}
	return row
}

// Restore rebuilds a wizard from a persisted row. An unknown step falls back
// to the first step.
func Restore(row model.WizardSession) *Wizard {
	w := New()
	if s, err := ParseStep(row.CurrentStep); err == nil {
		w.current = s
	}
	w.sel.Location = row.Location
	w.sel.Service = row.Service
	w.sel.Time = row.ScheduledAt
	if row.HasInfo {
		w.sel.Info = &model.Info{Name: row.Name, Phone: row.Phone, Email: row.Email}
	}
	return w
}
