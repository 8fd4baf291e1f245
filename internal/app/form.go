package app

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/afero"

	"github.com/nateberkopec/tasknotifier/internal/clock"
	"github.com/nateberkopec/tasknotifier/internal/reminder"
)

// formBindings holds form values on the heap so huh's Value pointers stay
// valid while the model is passed around.
type formBindings struct {
	title      string
	message    string
	time       string
	imagePath  string
	clearImage bool
	confirm    bool
}

func (fb *formBindings) reset() {
	*fb = formBindings{}
}

func (fb *formBindings) draft() reminder.Draft {
	return reminder.Draft{
		Title:     fb.title,
		Message:   fb.message,
		Time:      fb.time,
		ImagePath: fb.imagePath,
	}
}

func (m *Model) startCreate() tea.Cmd {
	m.editID = ""
	m.fb.reset()
	m.form = m.buildRecordForm(false)
	m.mode = modeForm
	return m.form.Init()
}

func (m *Model) startEdit(r reminder.Record) tea.Cmd {
	m.editID = r.ID
	m.fb.reset()
	m.fb.title = r.Title
	m.fb.message = r.Message
	m.fb.time = r.Time
	m.form = m.buildRecordForm(r.HasImage())
	m.mode = modeForm
	return m.form.Init()
}

func (m *Model) startDelete(r reminder.Record) tea.Cmd {
	m.editID = r.ID
	m.fb.reset()
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", r.Title)).
				Description(fmt.Sprintf("It fires daily at %s.", r.Time)).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth())
	m.mode = modeConfirmDelete
	return m.form.Init()
}

func (m *Model) buildRecordForm(hasImage bool) *huh.Form {
	imageHint := "Optional path to a PNG or JPEG"
	if hasImage {
		imageHint = "Leave empty to keep the current image"
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("Stand-up").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewInput().
			Title("Message").
			Placeholder("Join the call").
			Value(&m.fb.message).
			Validate(validateRequired("Message")),
		huh.NewInput().
			Title("Time").
			Placeholder("HH:MM").
			CharLimit(5).
			Value(&m.fb.time).
			Validate(validateTime),
		huh.NewInput().
			Title("Image").
			Description(imageHint).
			Value(&m.fb.imagePath).
			Validate(validateImagePath(m.fs)),
	}
	if hasImage {
		fields = append(fields,
			huh.NewConfirm().
				Title("Remove the current image?").
				Affirmative("Remove").
				Negative("Keep").
				Value(&m.fb.clearImage),
		)
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithWidth(m.formWidth())
}

// updateForm forwards msg to the active form and acts on completion.
func (m *Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.mode = modeList
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		mode := m.mode
		m.closeForm()
		if mode == modeConfirmDelete {
			return m, m.submitDelete()
		}
		return m, m.submitRecord()
	case huh.StateAborted:
		m.closeForm()
		m.setStatus("Cancelled", statusNeutral)
		return m, nil
	}
	return m, cmd
}

func (m *Model) closeForm() {
	m.form = nil
	m.mode = modeList
}

func (m *Model) submitRecord() tea.Cmd {
	if m.editID == "" {
		r, err := m.service.Create(m.fb.draft())
		if err != nil {
			m.setStatus(err.Error(), statusError)
			return nil
		}
		m.selectID(r.ID)
		m.setStatus(fmt.Sprintf("Scheduled %q daily at %s", r.Title, r.Time), statusSuccess)
		return nil
	}

	r, err := m.service.Update(m.editID, m.fb.draft(), m.fb.clearImage)
	if err != nil {
		m.setStatus(err.Error(), statusError)
		return nil
	}
	m.setStatus(fmt.Sprintf("Updated %q", r.Title), statusSuccess)
	return nil
}

func (m *Model) submitDelete() tea.Cmd {
	if !m.fb.confirm {
		m.setStatus("Delete cancelled", statusNeutral)
		return nil
	}
	r, err := m.service.Delete(m.editID)
	if err != nil {
		m.setStatus(err.Error(), statusError)
		return nil
	}
	delete(m.lastEvents, r.ID)
	m.ensureSelectionBounds()
	m.setStatus(fmt.Sprintf("Deleted %q", r.Title), statusNeutral)
	return nil
}

func (m *Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateTime(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("Time is required")
	}
	if _, err := clock.Parse(s); err != nil {
		return reminder.ErrInvalidTime
	}
	return nil
}

func validateImagePath(fs afero.Fs) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		info, err := fs.Stat(s)
		if err != nil {
			return fmt.Errorf("no file at %s", s)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", s)
		}
		return nil
	}
}
