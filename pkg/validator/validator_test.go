package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		phone := "06 12 34 56 78"
		errs := ValidateRegister("lea@example.com", "Léa", "Petit", "Secret123", &phone)
		assert.False(t, errs.HasErrors(), errs)
	})

	t.Run("every field wrong", func(t *testing.T) {
		phone := "12345"
		errs := ValidateRegister("not-an-email", "", "X", "short", &phone)
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "first_name")
		assert.Contains(t, errs, "last_name")
		assert.Contains(t, errs, "phone_number")
		assert.Contains(t, errs, "password")
	})

	t.Run("weak password", func(t *testing.T) {
		errs := ValidateRegister("lea@example.com", "Léa", "Petit", "alllowercase", nil)
		assert.Equal(t, "Password must contain at least one uppercase letter, one number", errs["password"])
	})
}

func TestValidateLogin(t *testing.T) {
	assert.False(t, ValidateLogin("demo@geev.com", "demo123").HasErrors())

	errs := ValidateLogin("", "")
	assert.Equal(t, "Email is required", errs["email"])
	assert.Equal(t, "Password is required", errs["password"])
}

func TestValidateItem(t *testing.T) {
	images := []string{"https://example.com/a.jpg", "https://picsum.photos/400/300?random=1"}
	assert.False(t, ValidateItem("Lampe", "Lampe LED", images, true, true).HasErrors())

	errs := ValidateItem(strings.Repeat("a", MaxTitleLength+1), "", make([]string, 6), false, false)
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "description")
	assert.Contains(t, errs, "images")
	assert.Contains(t, errs, "category")
	assert.Contains(t, errs, "condition")

	errs = ValidateItem("Lampe", "Lampe LED", []string{"https://example.com/a.txt"}, true, true)
	assert.Contains(t, errs, "images")
}

func TestValidateItemPatch(t *testing.T) {
	assert.False(t, ValidateItemPatch(nil, nil, nil).HasErrors())

	empty := " "
	errs := ValidateItemPatch(&empty, nil, nil)
	assert.Equal(t, "Title is required", errs["title"])
}

func TestValidateMessage(t *testing.T) {
	assert.False(t, ValidateMessage("Bonjour !").HasErrors())
	assert.True(t, ValidateMessage("   ").HasErrors())
	assert.True(t, ValidateMessage(strings.Repeat("é", MaxMessageLength+1)).HasErrors())
	assert.False(t, ValidateMessage(strings.Repeat("é", MaxMessageLength)).HasErrors())
}

func TestIsPhone(t *testing.T) {
	for _, ok := range []string{"0612345678", "06 12 34 56 78", "+33 6 12 34 56 78", "06.12.34.56.78"} {
		assert.True(t, IsPhone(ok), ok)
	}
	for _, bad := range []string{"", "12345", "0012345678", "+44 6 12 34 56 78"} {
		assert.False(t, IsPhone(bad), bad)
	}
}
