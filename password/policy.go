package password

import (
	"unicode"
)

const (
	// MinLength is the minimum accepted password length in bytes.
	MinLength = 8
	// MaxLength bounds the input fed to the key derivation.
	MaxLength = 128
)

// Policy reports every strength requirement password fails, or nil when
// it is acceptable. Special characters are any ASCII punctuation or symbol.
func Policy(password string) []string {
	if password == "" {
		return []string{"password is required"}
	}

	var problems []string
	if len(password) < MinLength {
		problems = append(problems, "password must be at least 8 characters")
	}
	if len(password) > MaxLength {
		problems = append(problems, "password must be at most 128 characters")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case r < unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r)):
			special = true
		}
	}

	if !upper {
		problems = append(problems, "password must contain an uppercase letter")
	}
	if !lower {
		problems = append(problems, "password must contain a lowercase letter")
	}
	if !digit {
		problems = append(problems, "password must contain a number")
	}
	if !special {
		problems = append(problems, "password must contain a special character")
	}
	return problems
}
