package auth

type Role string

const (
	RoleOwner     Role = "owner"
	RoleAssistant Role = "assistant"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleAssistant:
		return Role(s), true
	}
	return "", false
}

// Allow reports whether role belongs to the allowed set. Callers translate
// false into a Forbidden outcome; no lookup happens here.
func Allow(role Role, allowed ...Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
