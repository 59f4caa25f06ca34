package keycloak

// Permitted reports whether the context satisfies the route requirement:
// an empty requirement admits every authenticated caller, otherwise any one
// matching role is enough.
func Permitted(ac AuthContext, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, role := range required {
		if ac.HasRole(role) {
			return true
		}
	}
	return false
}
