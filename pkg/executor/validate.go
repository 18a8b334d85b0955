// pkg/executor/validate.go
package executor

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// maxArgLength bounds a single argument. Backend package names and flag
// values are far shorter; anything near this is suspect.
const maxArgLength = 512

// noControlChars rejects arguments carrying control characters, which is
// where shell-metacharacter smuggling via newlines or NUL lives.
var noControlChars = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.ContainsFunc(s, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return fmt.Errorf("contains control characters")
	}
	return nil
})

// ValidateArgs checks every argument against the executor's rules:
// non-empty, bounded length, no control characters.
func ValidateArgs(args []string) error {
	for i, arg := range args {
		err := validation.Validate(arg,
			validation.Required,
			validation.RuneLength(1, maxArgLength),
			noControlChars,
		)
		if err != nil {
			return fmt.Errorf("arg %d: %w", i, err)
		}
	}
	return nil
}
