package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/Brownie44l1/alzdetect/internal/apperr"
)

// Reason names the rule that rejected a form.
type Reason string

const (
	MissingName    Reason = "MissingName"
	MissingAge     Reason = "MissingAge"
	MissingContact Reason = "MissingContact"
	MissingImage   Reason = "MissingImage"
	InvalidContact Reason = "InvalidContact"
	InvalidName    Reason = "InvalidName"
	InvalidAge     Reason = "InvalidAge"
	InvalidGender  Reason = "InvalidGender"
)

const (
	MinAge = 1
	MaxAge = 150
)

// Genders accepted by the form, in display order.
var Genders = []string{"Male", "Female", "Other"}

var contactPattern = regexp.MustCompile(`^[0-9]{10}$`)

var (
	validate   = validator.New()
	ageRule    = "min=" + strconv.Itoa(MinAge) + ",max=" + strconv.Itoa(MaxAge)
	genderRule = "required,oneof=" + strings.Join(Genders, " ")
)

// Form holds the raw values of one submission, before any parsing.
type Form struct {
	Name     string
	Age      string
	Gender   string
	Contact  string
	HasImage bool
}

// Patient is the validated, typed form of the patient fields.
type Patient struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	Contact string `json:"contact"`
}

// Failure describes the first rule a form failed.
type Failure struct {
	Rule    Reason
	Message string
}

func (f *Failure) Error() string {
	return string(f.Rule) + ": " + f.Message
}

// AsError converts the failure to a pipeline validation error.
func (f *Failure) AsError() *apperr.Error {
	return apperr.New(apperr.KindValidation, string(f.Rule), f.Message)
}

type rule struct {
	reason  Reason
	message string
	ok      func(Form) bool
}

// rules are evaluated in order; the first failing one is reported.
var rules = []rule{
	{MissingName, "Please enter the patient's name!", func(f Form) bool {
		return strings.TrimSpace(f.Name) != ""
	}},
	{MissingAge, "Please enter your age!", func(f Form) bool {
		return strings.TrimSpace(f.Age) != ""
	}},
	{MissingContact, "Please enter your contact number!", func(f Form) bool {
		return f.Contact != ""
	}},
	{MissingImage, "Please upload the MRI scan!", func(f Form) bool {
		return f.HasImage
	}},
	{InvalidContact, "Please enter a 10 digit number!", func(f Form) bool {
		return contactPattern.MatchString(f.Contact)
	}},
	{InvalidName, "Name should not contain numbers or special character.", validName},
	{InvalidAge, "Age must be a whole number between 1 and 150.", func(f Form) bool {
		_, err := parseAge(f.Age)
		return err == nil
	}},
	{InvalidGender, "Gender must be one of Male, Female or Other.", func(f Form) bool {
		return validate.Var(f.Gender, genderRule) == nil
	}},
}

// Validate checks f against every rule in order and returns the first
// failure, or nil when the form is acceptable.
func Validate(f Form) *Failure {
	for _, r := range rules {
		if !r.ok(f) {
			return &Failure{Rule: r.reason, Message: r.message}
		}
	}
	return nil
}

// Parse validates f and returns the typed patient fields.
func Parse(f Form) (Patient, *Failure) {
	if failure := Validate(f); failure != nil {
		return Patient{}, failure
	}
	age, _ := parseAge(f.Age)
	return Patient{
		Name:    f.Name,
		Age:     age,
		Gender:  f.Gender,
		Contact: f.Contact,
	}, nil
}

func validName(f Form) bool {
	for _, r := range f.Name {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func parseAge(s string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if err := validate.Var(age, ageRule); err != nil {
		return 0, err
	}
	return age, nil
}
