package validate

import (
	"fmt"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

// Form is the editable state of the entry form. Editing a field clears that
// field's error only; other errors stay until the next full validation.
type Form struct {
	Input      Input
	Errors     Errors
	Submitting bool

	v Validator
}

func NewForm(v Validator) *Form {
	return &Form{v: v, Errors: Errors{}}
}

// Set updates one field and drops its previous error.
func (f *Form) Set(field, value string) error {
	if !f.Input.Set(field, value) {
		return fmt.Errorf("unknown field %q", field)
	}
	delete(f.Errors, field)
	return nil
}

// Validate runs every rule and replaces the error map.
func (f *Form) Validate() (models.Entry, bool) {
	e, errs := f.v.Validate(f.Input)
	f.Errors = errs
	return e, errs.OK()
}

// Reset clears values and errors.
func (f *Form) Reset() {
	f.Input = Input{}
	f.Errors = Errors{}
	f.Submitting = false
}
