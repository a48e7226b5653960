//go:build darwin

package sound

import "os/exec"

// playSystem plays sounds on macOS using afplay
func playSystem(a Alert) bool {
	var soundFiles []string
	switch a {
	case AlertPermission:
		soundFiles = []string{"/System/Library/Sounds/Ping.aiff", "/System/Library/Sounds/Pop.aiff"}
	case AlertError:
		soundFiles = []string{"/System/Library/Sounds/Basso.aiff"}
	default:
		soundFiles = []string{"/System/Library/Sounds/Glass.aiff", "/System/Library/Sounds/Tink.aiff"}
	}

	for _, soundFile := range soundFiles {
		cmd := exec.Command("afplay", soundFile)
		if err := cmd.Start(); err == nil {
			return true
		}
	}
	return false
}
