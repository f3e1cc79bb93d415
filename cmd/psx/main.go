// Command psx is the SDL2 presenter: it owns the window, the queued audio
// device, and the host input loop, driving an internal/emulator.Emulator
// one frame at a time. Grounded on the teacher's gui/sdl package (window/
// renderer setup in sdl.go, the fpsLimiter in limiter.go, the streaming-
// texture update in gui/sdldebug/textures.go), generalized from a 2600
// television's NTSC/PAL raster to the PSX GPU's 1024x512 VRAM plane.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/jetsetilly/psx/errors"
	"github.com/jetsetilly/psx/internal/cdrom/disc"
	"github.com/jetsetilly/psx/internal/config"
	"github.com/jetsetilly/psx/internal/emulator"
	"github.com/jetsetilly/psx/internal/instance"
	"github.com/jetsetilly/psx/internal/spu/capture"
)

const (
	vramWidth  = 1024
	vramHeight = 512
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	biosPath := flag.String("bios", "", "path to a PS1 BIOS image")
	discPath := flag.String("disc", "", "path to a raw CD-ROM image (single data track)")
	exePath := flag.String("exe", "", "path to a PS-EXE to sideload once the BIOS reaches the shell")
	scale := flag.Int("scale", 1, "integer window scale factor")
	rawTTY := flag.Bool("raw-tty", false, "mirror kernel TTY output to the controlling terminal in raw mode")
	dumpCapturePath := flag.String("dump-capture", "", "periodically flush the SPU's CD-audio capture buffers to this WAV file")
	randomState := flag.Bool("random-state", false, "fill RAM/scratchpad with a fixed non-zero pattern at reset")
	flag.Parse()

	if *biosPath == "" {
		return fmt.Errorf("psx: -bios is required")
	}
	bios, err := os.ReadFile(*biosPath)
	if err != nil {
		return errors.Errorf(errors.BIOSLoadError, err)
	}

	cfg := config.Default()
	cfg.RandomState = *randomState
	ins := instance.NewInstance(cfg)
	emu := emulator.NewEmulator(ins, bios)

	if *discPath != "" {
		d, err := loadDisc(*discPath)
		if err != nil {
			return errors.Errorf(errors.DiscLoadError, err)
		}
		emu.LoadDisc(d)
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("psx: sdl init: %w", err)
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow("psx",
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(vramWidth*(*scale)), int32(vramHeight*(*scale)),
		sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("psx: creating window: %w", err)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("psx: creating renderer: %w", err)
	}
	defer renderer.Destroy()

	texture, err := renderer.CreateTexture(uint32(sdl.PIXELFORMAT_ABGR1555),
		sdl.TEXTUREACCESS_STREAMING, vramWidth, vramHeight)
	if err != nil {
		return fmt.Errorf("psx: creating vram texture: %w", err)
	}
	defer texture.Destroy()

	audio, err := newAudioQueue()
	if err != nil {
		return fmt.Errorf("psx: opening audio device: %w", err)
	}
	defer audio.close()
	emu.Bus.AudioOut = audio.push

	var tty *ttyMirror
	if *rawTTY {
		tty = newTTYMirror()
		defer tty.close()
	}

	var dumper *capture.Dumper
	if *dumpCapturePath != "" {
		f, err := os.Create(*dumpCapturePath)
		if err != nil {
			return fmt.Errorf("psx: opening capture dump: %w", err)
		}
		defer f.Close()
		dumper = capture.NewDumper(f)
		defer dumper.Close()
	}

	if *exePath != "" {
		exe, err := os.ReadFile(*exePath)
		if err != nil {
			return errors.Errorf(errors.EXELoadError, err)
		}
		if err := emu.SideloadEXE(exe); err != nil {
			return err
		}
	}

	limiter := newFPSLimiter(60)
	buttons := emulator.ButtonState{}

	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				return nil
			case *sdl.KeyboardEvent:
				applyKeyEvent(&buttons, e)
			}
		}
		emu.UpdateInput(buttons)

		emu.RunFrame()

		if tty != nil {
			tty.write(emu.GetTTYBuf())
		} else {
			fallbackTTYWrite(emu.GetTTYBuf())
		}

		if dumper != nil {
			if err := dumper.Flush(emu.Bus.Spu); err != nil {
				return fmt.Errorf("psx: flushing capture dump: %w", err)
			}
		}

		if err := presentVRAM(texture, renderer, emu.GetVRAM()); err != nil {
			return fmt.Errorf("psx: presenting frame: %w", err)
		}

		limiter.wait()
	}
}

func presentVRAM(texture *sdl.Texture, renderer *sdl.Renderer, vram []uint16) error {
	pixels := make([]byte, len(vram)*2)
	for i, v := range vram {
		pixels[2*i] = byte(v)
		pixels[2*i+1] = byte(v >> 8)
	}
	if err := texture.Update(nil, pixels, vramWidth*2); err != nil {
		return err
	}
	renderer.Clear()
	if err := renderer.Copy(texture, nil, nil); err != nil {
		return err
	}
	renderer.Present()
	return nil
}

func loadDisc(path string) (*disc.Disc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := disc.New()
	d.AddTracks([][]byte{data})
	return d, nil
}

func applyKeyEvent(b *emulator.ButtonState, e *sdl.KeyboardEvent) {
	down := e.State == sdl.PRESSED
	switch e.Keysym.Sym {
	case sdl.K_UP:
		b.Up = down
	case sdl.K_DOWN:
		b.Down = down
	case sdl.K_LEFT:
		b.Left = down
	case sdl.K_RIGHT:
		b.Right = down
	case sdl.K_z:
		b.Cross = down
	case sdl.K_x:
		b.Square = down
	case sdl.K_a:
		b.Triangle = down
	case sdl.K_s:
		b.Circle = down
	case sdl.K_q:
		b.L1 = down
	case sdl.K_w:
		b.R1 = down
	case sdl.K_1:
		b.L2 = down
	case sdl.K_2:
		b.R2 = down
	case sdl.K_RETURN:
		b.Start = down
	case sdl.K_RSHIFT:
		b.Select = down
	}
}
