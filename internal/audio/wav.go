package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DecodeWAV reads a PCM WAV stream and returns mono float32 samples and
// the stream's sample rate.
func DecodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("audio: not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: decode WAV: %w", err)
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	samples := IntsToFloat32(buf.Data, bitDepth)
	return Downmix(samples, buf.Format.NumChannels), buf.Format.SampleRate, nil
}

// ReadWAV loads a WAV file as mono float32 samples.
func ReadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// WriteWAV writes mono samples to path as 16-bit PCM.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	w, err := CreateWAV(path, sampleRate)
	if err != nil {
		return err
	}
	if err := w.Write(samples); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// EncodeWAV returns mono samples encoded as an in-memory 16-bit PCM WAV file.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	var ws seekBuffer
	enc := wav.NewEncoder(&ws, sampleRate, 16, 1, 1)
	if err := enc.Write(intBuffer(samples, sampleRate)); err != nil {
		return nil, fmt.Errorf("audio: encode WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: finalize WAV: %w", err)
	}
	return ws.buf, nil
}

// WAVWriter appends mono samples to a WAV file. The header is finalised
// on Close. It is safe for concurrent use.
type WAVWriter struct {
	mu      sync.Mutex
	f       *os.File
	enc     *wav.Encoder
	rate    int
	written int64
}

// CreateWAV creates (or truncates) a WAV file for writing.
func CreateWAV(path string, sampleRate int) (*WAVWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("audio: create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create %s: %w", path, err)
	}
	return &WAVWriter{
		f:    f,
		enc:  wav.NewEncoder(f, sampleRate, 16, 1, 1),
		rate: sampleRate,
	}, nil
}

// Write appends samples.
func (w *WAVWriter) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.enc == nil {
		return errors.New("audio: WAV writer closed")
	}
	if err := w.enc.Write(intBuffer(samples, w.rate)); err != nil {
		return fmt.Errorf("audio: write WAV: %w", err)
	}
	w.written += int64(len(samples))
	return nil
}

// Samples returns the number of samples written so far.
func (w *WAVWriter) Samples() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close finalises the header and closes the file.
func (w *WAVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.enc == nil {
		return nil
	}
	encErr := w.enc.Close()
	fileErr := w.f.Close()
	w.enc = nil
	if encErr != nil {
		return fmt.Errorf("audio: finalize WAV: %w", encErr)
	}
	return fileErr
}

func intBuffer(samples []float32, sampleRate int) *goaudio.IntBuffer {
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           Float32ToInts(samples),
		SourceBitDepth: 16,
	}
}

// seekBuffer is an in-memory io.WriteSeeker for the WAV encoder, which
// rewrites the header sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if end := s.pos + len(p); end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(s.pos) + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("audio: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("audio: negative position")
	}
	s.pos = int(abs)
	return abs, nil
}
