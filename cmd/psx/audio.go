package main

import (
	"github.com/veandco/go-sdl2/sdl"
)

// audioQueue turns Bus.AudioOut's per-sample callback into a queued SDL
// audio stream: samples accumulate in a small interleaved buffer and are
// flushed to the device in bursts rather than one sdl.QueueAudio call per
// sample, since libsdl's own docs warn against extremely small queue
// writes. 735 stereo samples is one NTSC video frame's worth at 44100Hz /
// 60fps; the core itself hands over one sample per call, with no
// per-frame audio callback.
type audioQueue struct {
	dev sdl.AudioDeviceID

	buf []int16
}

const audioFlushSamples = 735 // stereo frames per flush

func newAudioQueue() (*audioQueue, error) {
	spec := &sdl.AudioSpec{
		Freq:     44100,
		Format:   sdl.AUDIO_S16SYS,
		Channels: 2,
		Samples:  2048,
	}
	dev, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		return nil, err
	}
	sdl.PauseAudioDevice(dev, false)

	return &audioQueue{
		dev: dev,
		buf: make([]int16, 0, audioFlushSamples*2),
	}, nil
}

// push is passed to Bus.AudioOut and is called once per SPU sample tick.
func (a *audioQueue) push(l, r int16) {
	a.buf = append(a.buf, l, r)
	if len(a.buf) >= audioFlushSamples*2 {
		sdl.QueueAudio(a.dev, int16SliceToBytes(a.buf))
		a.buf = a.buf[:0]
	}
}

func (a *audioQueue) close() {
	sdl.CloseAudioDevice(a.dev)
}

func int16SliceToBytes(s []int16) []byte {
	b := make([]byte, len(s)*2)
	for i, v := range s {
		b[2*i] = byte(v)
		b[2*i+1] = byte(v >> 8)
	}
	return b
}
