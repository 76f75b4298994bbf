package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Listing and chat limits.
const (
	MaxImagesPerItem     = 5
	MaxTitleLength       = 80
	MaxDescriptionLength = 1000
	MaxMessageLength     = 500
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// Error lists the failing fields, so the map can travel as an error.
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// French mobile and landline numbers, with or without the +33 prefix.
var phoneRegex = regexp.MustCompile(`^(?:(?:\+|00)33|0)\s*[1-9](?:[\s.-]*\d{2}){4}$`)
var imageRegex = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|bmp|webp)$`)

func ValidateRegister(email, firstName, lastName, password string, phone *string) ValidationErrors {
	errs := make(ValidationErrors)

	// Email
	validateEmail(email, errs)

	// Names
	validateName("first_name", "First name", firstName, errs)
	validateName("last_name", "Last name", lastName, errs)

	// Phone
	if phone != nil && strings.TrimSpace(*phone) != "" && !IsPhone(*phone) {
		errs.Add("phone_number", "Invalid phone number")
	}

	// Password
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

// ValidateProfile checks the fields a profile patch sets. Nil means unchanged.
func ValidateProfile(firstName, lastName, phone *string) ValidationErrors {
	errs := make(ValidationErrors)

	if firstName != nil {
		validateName("first_name", "First name", *firstName, errs)
	}
	if lastName != nil {
		validateName("last_name", "Last name", *lastName, errs)
	}
	if phone != nil && strings.TrimSpace(*phone) != "" && !IsPhone(*phone) {
		errs.Add("phone_number", "Invalid phone number")
	}

	return errs
}

// ValidateItem checks a new listing. category and condition are checked
// by the caller against the domain enums and passed in as valid flags.
func ValidateItem(title, description string, images []string, categoryValid, conditionValid bool) ValidationErrors {
	errs := make(ValidationErrors)

	validateTitle(title, errs)
	validateDescription(description, errs)
	validateImages(images, errs)

	if !categoryValid {
		errs.Add("category", "Invalid category")
	}
	if !conditionValid {
		errs.Add("condition", "Invalid condition")
	}

	return errs
}

// ValidateItemPatch checks only the fields being changed.
func ValidateItemPatch(title, description *string, images []string) ValidationErrors {
	errs := make(ValidationErrors)

	if title != nil {
		validateTitle(*title, errs)
	}
	if description != nil {
		validateDescription(*description, errs)
	}
	if images != nil {
		validateImages(images, errs)
	}

	return errs
}

func ValidateMessage(content string) ValidationErrors {
	errs := make(ValidationErrors)

	content = strings.TrimSpace(content)
	if content == "" {
		errs.Add("content", "Message cannot be empty")
	} else if utf8.RuneCountInString(content) > MaxMessageLength {
		errs.Add("content", fmt.Sprintf("Message cannot exceed %d characters", MaxMessageLength))
	}

	return errs
}

func IsPhone(phone string) bool {
	return phoneRegex.MatchString(strings.TrimSpace(phone))
}

func IsImageURL(url string) bool {
	return imageRegex.MatchString(url) || strings.Contains(url, "picsum.photos")
}

func validateEmail(email string, errs ValidationErrors) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}
}

func validateName(field, label, name string, errs ValidationErrors) {
	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add(field, label+" is required")
	} else if utf8.RuneCountInString(name) < 2 {
		errs.Add(field, label+" must be at least 2 characters")
	} else if utf8.RuneCountInString(name) > 50 {
		errs.Add(field, label+" is too long")
	}
}

func validateTitle(title string, errs ValidationErrors) {
	title = strings.TrimSpace(title)
	if title == "" {
		errs.Add("title", "Title is required")
	} else if utf8.RuneCountInString(title) > MaxTitleLength {
		errs.Add("title", fmt.Sprintf("Title cannot exceed %d characters", MaxTitleLength))
	}
}

func validateDescription(description string, errs ValidationErrors) {
	description = strings.TrimSpace(description)
	if description == "" {
		errs.Add("description", "Description is required")
	} else if utf8.RuneCountInString(description) > MaxDescriptionLength {
		errs.Add("description", fmt.Sprintf("Description cannot exceed %d characters", MaxDescriptionLength))
	}
}

func validateImages(images []string, errs ValidationErrors) {
	if len(images) > MaxImagesPerItem {
		errs.Add("images", fmt.Sprintf("At most %d images per item", MaxImagesPerItem))
		return
	}
	for _, img := range images {
		if !IsImageURL(img) {
			errs.Add("images", "Invalid image URL: "+img)
			return
		}
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
