package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guestForm struct {
	DocumentType   string `validate:"required,oneof=DNI NIE PASSPORT OTHER"`
	DocumentNumber string `validate:"required,document=DocumentType"`
	Phone          string `validate:"omitempty,phone_es"`
}

type spanishIDs struct {
	DNI string `validate:"omitempty,dni"`
	NIE string `validate:"omitempty,nie"`
}

func TestValidatorDocumentTag(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(&guestForm{DocumentType: "DNI", DocumentNumber: "12345678Z", Phone: "600123456"}))
	require.NoError(t, v.Struct(guestForm{DocumentType: "NIE", DocumentNumber: "X1234567L"}))

	err := v.Struct(&guestForm{DocumentType: "DNI", DocumentNumber: "12345678A"})
	require.Error(t, err)
	assert.Contains(t, Describe(err), "DocumentNumber failed document=DocumentType")

	err = v.Struct(&guestForm{DocumentType: "DNI", DocumentNumber: "12345678Z", Phone: "123"})
	require.Error(t, err)
	assert.Contains(t, Describe(err), "Phone failed phone_es")
}

func TestValidatorIDTags(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(&spanishIDs{DNI: "12345678Z", NIE: "Z1234567R"}))
	require.Error(t, v.Struct(&spanishIDs{DNI: "X1234567L"}))
	require.Error(t, v.Struct(&spanishIDs{NIE: "12345678Z"}))
}

type addressForm struct {
	Name   string `validate:"required,plaintext"`
	Street string `validate:"omitempty,plaintext"`
}

func TestValidatorPlainTextTag(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(&addressForm{Name: "José María Núñez-O'Brien", Street: "Calle Mayor 3, 2º B"}))

	for _, bad := range []string{"Ana\x01Maria", "Ana\nMaria", "tab\there", "Ana\u0085", "bad\xffutf8", "Ana\uFFFE"} {
		err := v.Struct(&addressForm{Name: bad})
		require.Error(t, err, "%q", bad)
		assert.Contains(t, Describe(err), "Name failed plaintext")
	}
}
