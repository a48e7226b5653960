//go:build !darwin

package sound

// playSystem has no system sounds to offer; the bell is used
func playSystem(Alert) bool {
	return false
}
