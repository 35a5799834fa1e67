//go:build js && wasm

package main

import (
	"strings"
	"syscall/js"
	"time"
	"unsafe"

	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/synth"
)

const maxBlock = 128

var (
	engine       *synth.Engine
	ctrl         *keyboard.Controller
	started      time.Time
	outputBuffer []float32
)

func main() {
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmKeyDown", js.FuncOf(wasmKeyDown))
	js.Global().Set("wasmKeyUp", js.FuncOf(wasmKeyUp))
	js.Global().Set("wasmReleaseAll", js.FuncOf(wasmReleaseAll))
	js.Global().Set("wasmSetKnob", js.FuncOf(wasmSetKnob))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM synth module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	sampleRate := args[0].Int()

	engine = synth.NewEngine(sampleRate, synth.DefaultPolyphony, synth.DefaultQueueCapacity)
	ctrl = keyboard.NewController(engine.Queue(), keyboard.NewKnobs(), sampleRate)
	ctrl.SetVolume(float64(ctrl.Knobs().Volume()))
	started = time.Now()

	// 128 stereo frames
	outputBuffer = make([]float32, maxBlock*2)

	println("Synth initialized at", sampleRate, "Hz")
	return nil
}

// keyArg maps a KeyboardEvent.key value onto a keyboard key.
func keyArg(args []js.Value) (keyboard.Key, bool) {
	if len(args) < 1 || ctrl == nil {
		return "", false
	}
	k := keyboard.Key(strings.ToLower(args[0].String()))
	_, ok := keyboard.NoteForKey(k)
	return k, ok
}

func wasmKeyDown(this js.Value, args []js.Value) interface{} {
	k, ok := keyArg(args)
	if !ok {
		return false
	}
	return ctrl.KeyDown(k, time.Since(started))
}

func wasmKeyUp(this js.Value, args []js.Value) interface{} {
	k, ok := keyArg(args)
	if !ok {
		return false
	}
	return ctrl.KeyUp(k, time.Since(started))
}

func wasmReleaseAll(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return 0
	}
	return ctrl.ReleaseAll(time.Since(started))
}

// wasmSetKnob sets a panel knob and returns the clamped value. Held notes are
// retuned so the change is audible immediately.
func wasmSetKnob(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || ctrl == nil {
		return nil
	}
	name := args[0].String()
	if name == keyboard.KnobVolume {
		return float64(ctrl.SetVolume(args[1].Float()))
	}
	v, err := ctrl.Knobs().Set(name, args[1].Float())
	if err != nil {
		println("set knob:", err.Error())
		return nil
	}
	ctrl.Retune()
	return v
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return 0
	}

	numFrames := min(args[0].Int(), maxBlock)
	engine.RenderInterleaved(outputBuffer[:numFrames*2], 2)

	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
