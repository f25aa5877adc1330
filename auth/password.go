package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	// minClassScore is the minimum number of character classes (upper,
	// lower, digit, symbol) a password must contain regardless of length.
	minClassScore = 3
	// maxRepeatRun is the longest run of one identical character allowed.
	maxRepeatRun = 4
)

// weakPasswords are rejected outright, as is any digits-suffixed variant
// ("password1", "qwerty2024", ...). Comparison is on the lowercased form.
var weakPasswords = []string{
	"password",
	"letmein",
	"welcome",
	"qwerty",
	"monkey",
	"dragon",
	"iloveyou",
	"sunshine",
	"princess",
	"football",
	"baseball",
	"trustno1",
	"master",
	"shadow",
	"superman",
	"michael",
}

// keyboardSequences are rejected as substrings of the lowercased password.
var keyboardSequences = []string{
	"qwerty",
	"asdfg",
	"zxcvb",
	"qazwsx",
	"12345",
	"54321",
	"67890",
	"09876",
}

// CheckPassword validates a candidate password against the registration
// policy. It returns nil or a *WeakPasswordError naming the failed rule.
func CheckPassword(password string) error {
	if len(password) < minPasswordLen {
		return &WeakPasswordError{Reason: "too short"}
	}
	if len(password) > maxPasswordLen {
		return &WeakPasswordError{Reason: "too long"}
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	allDigits := true
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	if allDigits {
		return &WeakPasswordError{Reason: "digits only"}
	}

	score := 0
	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasSymbol} {
		if present {
			score++
		}
	}
	if score < minClassScore {
		return &WeakPasswordError{Reason: "not enough character variety"}
	}

	lower := strings.ToLower(password)
	base := strings.TrimRight(lower, "0123456789")
	for _, weak := range weakPasswords {
		if lower == weak || (base == weak && base != lower) {
			return &WeakPasswordError{Reason: "too common"}
		}
	}

	if run := longestRun(password); run > maxRepeatRun {
		return &WeakPasswordError{Reason: "repeated characters"}
	}

	for _, seq := range keyboardSequences {
		if strings.Contains(lower, seq) {
			return &WeakPasswordError{Reason: "keyboard sequence"}
		}
	}
	return nil
}

func longestRun(s string) int {
	longest, run := 0, 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = r
	}
	return longest
}

// HashPassword derives a bcrypt hash from password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
