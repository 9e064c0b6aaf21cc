package chat

import (
	"fmt"
	"regexp"
)

// Participant identities are wallet-style hex addresses.
var identityPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{2,64}$`)

// ValidIdentity reports whether id is a well-formed participant identity.
func ValidIdentity(id string) bool {
	return identityPattern.MatchString(id)
}

// ValidateIdentity returns a descriptive error for malformed identities.
func ValidateIdentity(id string) error {
	if id == "" {
		return fmt.Errorf("identity is required")
	}
	if !ValidIdentity(id) {
		return fmt.Errorf("malformed identity %q", id)
	}
	return nil
}
