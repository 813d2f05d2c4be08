package profile

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidDraft is wrapped by every ValidationError.
var ErrInvalidDraft = errors.New("onboarding draft is incomplete")

// MinSyllabusTopics is the number of syllabus topics the wizard requires.
const MinSyllabusTopics = 3

// FieldError names a draft field and the rule it failed.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError reports why a wizard step cannot be submitted.
type ValidationError struct {
	Step   int          `json:"step"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " (" + f.Rule + ")"
	}
	return fmt.Sprintf("step %d: invalid %s", e.Step, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDraft }

type educationStep struct {
	Degree string `json:"degree" validate:"required,nonblank"`
	Branch string `json:"branch" validate:"required,nonblank"`
}

type syllabusStep struct {
	SyllabusTopics []string `json:"syllabusTopics" validate:"min=3,unique,dive,nonblank"`
}

type interestsStep struct {
	Interests []string `json:"interests" validate:"min=1,unique,dive,interest"`
}

type careerGoalStep struct {
	KnowsCareerGoal bool   `json:"knowsCareerGoal"`
	CareerGoal      string `json:"careerGoal" validate:"required_if=KnowsCareerGoal true"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func wizardValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("interest", func(fl validator.FieldLevel) bool {
			return IsInterest(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// ValidateStep checks whether the draft satisfies the requirements of the
// given wizard step (1 education, 2 syllabus, 3 interests, 4 career goal).
// The Store never calls this; the wizard does before advancing.
func ValidateStep(d OnboardingData, step int) error {
	var target any
	switch step {
	case 1:
		target = educationStep{Degree: d.Degree, Branch: d.Branch}
	case 2:
		target = syllabusStep{SyllabusTopics: d.SyllabusTopics}
	case 3:
		target = interestsStep{Interests: d.Interests}
	case 4:
		target = careerGoalStep{KnowsCareerGoal: d.KnowsCareerGoal, CareerGoal: strings.TrimSpace(d.CareerGoal)}
	default:
		return fmt.Errorf("unknown wizard step %d", step)
	}

	err := wizardValidator().Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating step %d: %w", step, err)
	}

	out := &ValidationError{Step: step}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldName(fe), Rule: fe.Tag()})
	}
	return out
}

// ValidateDraft checks every step in order and returns the first failure.
func ValidateDraft(d OnboardingData) error {
	for step := 1; step <= 4; step++ {
		if err := ValidateStep(d, step); err != nil {
			return err
		}
	}
	return nil
}

// fieldName strips the struct prefix from the validator namespace, keeping
// list indexes such as syllabusTopics[1].
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
