// Package password implements the ToxiFácil sign-up password policy.
//
// The rule set is the 4-rule variant: minimum length 8, at least one
// uppercase letter, one lowercase letter and one digit. Checks run in a
// fixed order and the first violated rule produces the user-facing message.
package password

import "unicode/utf8"

// Result is the outcome of validating a candidate password. Message is
// empty iff Valid.
type Result struct {
	Valid   bool
	Message string
}

func Validate(pw string) Result {
	// Length is counted in characters, not bytes.
	if utf8.RuneCountInString(pw) < 8 {
		return Result{Message: "a senha deve ter pelo menos 8 caracteres"}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasUpper {
		return Result{Message: "a senha deve conter pelo menos uma letra maiúscula"}
	}
	if !hasLower {
		return Result{Message: "a senha deve conter pelo menos uma letra minúscula"}
	}
	if !hasDigit {
		return Result{Message: "a senha deve conter pelo menos um número"}
	}
	return Result{Valid: true}
}
