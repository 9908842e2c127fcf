package speech

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSynth struct {
	mu      sync.Mutex
	spoken  []string
	rates   []float64
	cancels int
}

func (r *recordingSynth) Speak(text string, rate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
	r.rates = append(r.rates, rate)
	return nil
}

func (r *recordingSynth) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
}

func TestOutput_SpeakCancelsFirst(t *testing.T) {
	synth := &recordingSynth{}
	out := NewOutput(synth, DefaultRate, false, nil)

	out.Speak("first")
	out.Speak("second")

	assert.Equal(t, []string{"first", "second"}, synth.spoken)
	assert.Equal(t, []float64{1.1, 1.1}, synth.rates)
	assert.Equal(t, 2, synth.cancels)
}

func TestOutput_MuteThenUnmute(t *testing.T) {
	synth := &recordingSynth{}
	out := NewOutput(synth, DefaultRate, false, nil)

	assert.True(t, out.ToggleMute())
	assert.Equal(t, 1, synth.cancels)

	out.Speak("quiet please")
	assert.Empty(t, synth.spoken)

	assert.False(t, out.ToggleMute())
	out.Speak("hello again")
	assert.Equal(t, []string{"hello again"}, synth.spoken)
}

func TestOutput_StartsMuted(t *testing.T) {
	synth := &recordingSynth{}
	out := NewOutput(synth, 0, true, nil)

	assert.True(t, out.Muted())
	out.Speak("x")
	assert.Empty(t, synth.spoken)
}

func TestOutput_NilSynth(t *testing.T) {
	out := NewOutput(nil, DefaultRate, false, nil)
	out.Speak("nothing happens")
	out.Cancel()
}

func TestArgs(t *testing.T) {
	assert.Equal(t, []string{"-r", "193", "hi"}, Args("say", "hi", 1.1))
	assert.Equal(t, []string{"-s", "193", "hi"}, Args("espeak", "hi", 1.1))
	assert.Equal(t, []string{"-s", "175", "hi"}, Args("espeak-ng", "hi", 1.0))
	assert.Equal(t, []string{"-w", "-r", "10", "hi"}, Args("spd-say", "hi", 1.1))
	assert.Equal(t, []string{"-w", "-r", "100", "hi"}, Args("spd-say", "hi", 5))
}

func TestDetect_Unknown(t *testing.T) {
	_, err := Detect("definitely-not-a-tts-binary", nil)
	assert.ErrorIs(t, err, ErrNoSynthesizer)
}

func TestCommandSynthesizer_Cancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a unix shell")
	}

	script := filepath.Join(t.TempDir(), "fake-tts")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 30\n"), 0o755))

	synth := NewCommandSynthesizer(script, nil)
	require.NoError(t, synth.Speak("long reply", DefaultRate))

	synth.mu.Lock()
	cmd := synth.cmd
	synth.mu.Unlock()
	require.NotNil(t, cmd)

	start := time.Now()
	synth.Cancel()

	synth.mu.Lock()
	assert.Nil(t, synth.cmd)
	synth.mu.Unlock()

	// the waiter goroutine reaps the killed process quickly
	assert.Eventually(t, func() bool {
		return cmd.Process.Signal(syscall.Signal(0)) != nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCancelArgs(t *testing.T) {
	assert.Equal(t, []string{"-C"}, CancelArgs("spd-say"))
	assert.Nil(t, CancelArgs("espeak-ng"))
	assert.Nil(t, CancelArgs("say"))
}

func TestCommandSynthesizer_CancelFlushesSpeechDispatcher(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a unix shell")
	}

	dir := t.TempDir()
	logPath := filepath.Join(dir, "calls.log")
	t.Setenv("FAKE_TTS_LOG", logPath)

	// named spd-say so the synthesiser picks the speech-dispatcher branch
	script := filepath.Join(dir, "spd-say")
	body := "#!/bin/sh\necho \"$@\" >> \"$FAKE_TTS_LOG\"\n[ \"$1\" = \"-C\" ] && exit 0\nsleep 30\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	synth := NewCommandSynthesizer(script, nil)
	require.NoError(t, synth.Speak("old reply", DefaultRate))

	// wait until the fake has logged the utterance
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(logPath)
		return err == nil && strings.Contains(string(data), "old reply")
	}, 5*time.Second, 10*time.Millisecond)

	synth.Cancel()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "-w -r 10 old reply", lines[0])
	assert.Equal(t, "-C", lines[1])
}
