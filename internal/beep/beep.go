package beep

import (
	"fmt"
	"os/exec"
)

// Descending frequencies for countdown beeps (Hz)
// 5=880Hz, 4=784Hz, 3=698Hz, 2=622Hz, 1=554Hz (descending A5 to C#5)
var Frequencies = map[int]int{
	5: 880,
	4: 784,
	3: 698,
	2: 622,
	1: 554,
}

// Play plays a beep for the countdown number, trying the available audio
// players in turn and falling back to the console bell.
func Play(count int) {
	freq, ok := Frequencies[count]
	if !ok {
		return
	}

	if tryFFmpegTone(freq) {
		return
	}
	if tryPaplay() {
		return
	}

	fmt.Print("\a")
}

// tryFFmpegTone generates a short sine tone with ffmpeg and plays it through
// pw-cat (PipeWire) or aplay (ALSA).
func tryFFmpegTone(freq int) bool {
	for _, player := range []string{"pw-cat --playback -", "aplay -q -"} {
		cmd := exec.Command("bash", "-c",
			fmt.Sprintf("ffmpeg -f lavfi -i 'sine=frequency=%d:duration=0.1' -f wav - 2>/dev/null | %s 2>/dev/null",
				freq, player))
		if err := cmd.Run(); err == nil {
			return true
		}
	}
	return false
}

// tryPaplay plays a system sound using paplay
func tryPaplay() bool {
	sounds := []string{
		"/usr/share/sounds/freedesktop/stereo/message.oga",
		"/usr/share/sounds/freedesktop/stereo/bell.oga",
	}

	for _, sound := range sounds {
		if err := exec.Command("paplay", sound).Run(); err == nil {
			return true
		}
	}
	return false
}
