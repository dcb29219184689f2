//go:build !portaudio

package audio

// NewPortAudioSource reports that PortAudio support is not compiled in.
// Build with -tags portaudio to enable it.
func NewPortAudioSource(cfg SourceConfig) (Source, error) {
	return nil, ErrDriverUnavailable
}
