package booking

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/model"
	"interview-scheduler/internal/slots"
	"interview-scheduler/internal/store"
	"interview-scheduler/internal/validation"
)

// BookRequest is the booking submission payload.
type BookRequest struct {
	Name              string `json:"name" validate:"required,min=2,max=100"`
	Email             string `json:"email" validate:"required,email,max=200"`
	Whatsapp          string `json:"whatsapp" validate:"required,whatsapp"`
	JoiningPreference string `json:"joiningPreference" validate:"required,max=200"`
	Date              string `json:"date" validate:"required"`
	SlotID            string `json:"slotId" validate:"required"`
	FinalRound        bool   `json:"finalRound"`
	CurrentCTC        string `json:"currentCtc,omitempty" validate:"required_if=FinalRound true,max=200"`
	ExpectedCTC       string `json:"expectedCtc,omitempty" validate:"required_if=FinalRound true,max=200"`
}

func (r *BookRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Whatsapp = strings.TrimSpace(r.Whatsapp)
	r.JoiningPreference = strings.TrimSpace(r.JoiningPreference)
	r.Date = strings.TrimSpace(r.Date)
	r.SlotID = strings.TrimSpace(r.SlotID)
	r.CurrentCTC = strings.TrimSpace(r.CurrentCTC)
	r.ExpectedCTC = strings.TrimSpace(r.ExpectedCTC)
}

var bookMessages = validation.Messages{"whatsapp": "invalid WhatsApp number"}

// registerRules adds the rules that depend on service options.
func (s *Service) registerRules() {
	err := s.rules.RegisterValidation("whatsapp", func(fl validator.FieldLevel) bool {
		_, ok := s.normalizeWhatsapp(fl.Field().String())
		return ok
	})
	if err != nil {
		panic(err)
	}
}

// validate runs the structural and field checks. It never touches the store.
func (s *Service) validate(r *BookRequest) error {
	r.trim()
	if err := s.rules.Struct(r); err != nil {
		return validation.Error(err, bookMessages)
	}
	r.Whatsapp, _ = s.normalizeWhatsapp(r.Whatsapp)

	date, _, err := slots.ParseID(r.SlotID)
	if err != nil {
		return apperror.Validation("invalid slot id")
	}
	if date != r.Date {
		return apperror.Validation("slot id does not match date")
	}
	return nil
}

// checkJoiningPreference replaces the preference with the configured option
// it matches, ignoring case.
func checkJoiningPreference(cfg model.SlotConfig, r *BookRequest) error {
	opt, ok := cfg.JoiningOption(r.JoiningPreference)
	if !ok {
		return apperror.Validation("joiningPreference must be one of: " + strings.Join(cfg.JoiningOptions, ", "))
	}
	r.JoiningPreference = opt
	return nil
}

// normalizeWhatsapp strips spaces, dashes and parentheses and checks the
// result against the configured pattern. Numbers are stored with a leading '+'.
func (s *Service) normalizeWhatsapp(raw string) (string, bool) {
	var b strings.Builder
	for _, c := range raw {
		switch c {
		case ' ', '-', '(', ')', '.':
			continue
		}
		b.WriteRune(c)
	}
	phone := b.String()
	if !s.whatsapp.MatchString(phone) {
		return "", false
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone, true
}

func validateDate(date string) error {
	if _, _, err := slots.ParseID(date + ":00-00"); err != nil {
		return apperror.Validation("invalid date")
	}
	return nil
}

func validateSlotRef(date, slotID string) error {
	d, _, err := slots.ParseID(slotID)
	if err != nil {
		return apperror.Validation("invalid slot id")
	}
	if d != date {
		return apperror.Validation("slot id does not match date")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
