package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/alzdetect/internal/apperr"
)

func validForm() Form {
	return Form{
		Name:     "Jane Doe",
		Age:      "65",
		Gender:   "Female",
		Contact:  "9876543210",
		HasImage: true,
	}
}

func TestValidate_AcceptsValidForm(t *testing.T) {
	assert.Nil(t, Validate(validForm()))
}

func TestValidate_RuleOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Form)
		want   Reason
	}{
		{"missing name", func(f *Form) { f.Name = "" }, MissingName},
		{"whitespace name", func(f *Form) { f.Name = "   " }, MissingName},
		{"missing age", func(f *Form) { f.Age = "" }, MissingAge},
		{"missing contact", func(f *Form) { f.Contact = "" }, MissingContact},
		{"missing image", func(f *Form) { f.HasImage = false }, MissingImage},
		{"short contact", func(f *Form) { f.Contact = "12345" }, InvalidContact},
		{"digit in name", func(f *Form) { f.Name = "John3" }, InvalidName},
		{"age zero", func(f *Form) { f.Age = "0" }, InvalidAge},
		{"age too large", func(f *Form) { f.Age = "151" }, InvalidAge},
		{"age not a number", func(f *Form) { f.Age = "sixty" }, InvalidAge},
		{"unknown gender", func(f *Form) { f.Gender = "Unknown" }, InvalidGender},
		{"empty gender", func(f *Form) { f.Gender = "" }, InvalidGender},
		// Missing name is reported before a malformed contact.
		{"first failure wins", func(f *Form) { f.Name = ""; f.Contact = "abc" }, MissingName},
		// Contact is checked before name content.
		{"contact before name", func(f *Form) { f.Name = "J0hn"; f.Contact = "1" }, InvalidContact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			failure := Validate(f)
			require.NotNil(t, failure)
			assert.Equal(t, tt.want, failure.Rule)
			assert.NotEmpty(t, failure.Message)
		})
	}
}

func TestValidate_Contact(t *testing.T) {
	rejected := []string{
		"12345",
		"12345678901",
		"123-456-7890",
		"+123456789",
		"123456789a",
		" 1234567890",
		"1234567890\n",
		"１２３４５６７８９０",
	}
	for _, c := range rejected {
		f := validForm()
		f.Contact = c
		failure := Validate(f)
		require.NotNil(t, failure, "contact %q", c)
		assert.Equal(t, InvalidContact, failure.Rule, "contact %q", c)
	}

	accepted := []string{"0000000000", "9876543210", "1234567890"}
	for _, c := range accepted {
		f := validForm()
		f.Contact = c
		assert.Nil(t, Validate(f), "contact %q", c)
	}
}

func TestValidate_Name(t *testing.T) {
	for _, n := range []string{"John3", "Jane.Doe", "O'Brien", "Anne-Marie", "Bob!", "Zoë_"} {
		f := validForm()
		f.Name = n
		failure := Validate(f)
		require.NotNil(t, failure, "name %q", n)
		assert.Equal(t, InvalidName, failure.Rule, "name %q", n)
	}

	for _, n := range []string{"Jane", "Jane Doe", "José Álvarez", "  Mary  Ann "} {
		f := validForm()
		f.Name = n
		assert.Nil(t, Validate(f), "name %q", n)
	}
}

func TestParse(t *testing.T) {
	p, failure := Parse(validForm())
	require.Nil(t, failure)
	assert.Equal(t, Patient{Name: "Jane Doe", Age: 65, Gender: "Female", Contact: "9876543210"}, p)

	f := validForm()
	f.Contact = "12345"
	_, failure = Parse(f)
	require.NotNil(t, failure)
	err := failure.AsError()
	assert.Equal(t, apperr.KindValidation, err.Kind)
	assert.Equal(t, string(InvalidContact), err.Reason)
}
