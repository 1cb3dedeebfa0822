package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"cine-prompt-server/modules/common/apperror"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateUserConfig - hasImage counts as content when the description is blank
func ValidateUserConfig(cfg UserConfig, hasImage bool) error {
	if err := validate.Struct(cfg); err != nil {
		return apperror.New(apperror.KindValidation, describe(err), err)
	}
	if strings.TrimSpace(cfg.MainDescription) == "" && !hasImage {
		return apperror.Validation("a description or a reference image is required")
	}
	return nil
}

func ValidateTransitionConfig(cfg TransitionConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return apperror.New(apperror.KindValidation, describe(err), err)
	}
	return nil
}

// ValidateGeneratedData - schema check between decoding and use
func ValidateGeneratedData(d *GeneratedData) error {
	if d == nil {
		return apperror.SchemaViolation(errors.New("empty storyboard"))
	}
	if err := validate.Struct(d); err != nil {
		return apperror.SchemaViolation(errors.New(describe(err)))
	}
	seen := make(map[int]struct{}, len(d.Shots))
	for _, s := range d.Shots {
		if _, dup := seen[s.ID]; dup {
			return apperror.SchemaViolation(fmt.Errorf("duplicate shot id %d", s.ID))
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

func ValidateTransitionResult(r *TransitionResult) error {
	if r == nil {
		return apperror.SchemaViolation(errors.New("empty transition result"))
	}
	if err := validate.Struct(r); err != nil {
		return apperror.SchemaViolation(errors.New(describe(err)))
	}
	return nil
}

// ContiguousIDs - ids are exactly 1..n in order
func ContiguousIDs(shots []ShotEntry) bool {
	for i, s := range shots {
		if s.ID != i+1 {
			return false
		}
	}
	return true
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed '%s=%s'", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
