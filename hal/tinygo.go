//go:build tinygo && baremetal

package hal

import (
	"machine"
)

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	fb     Framebuffer
	kbd    Keyboard
	t      *tinyGoTime
	cpu    *SimCPU
}

// New returns the board HAL.
//
// UART: the board's default UART, 115200 8N1. The kernel runs on the
// software CPU model on top of TinyGo's scheduler.
func New() HAL {
	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    &pinLED{pin: ledPin},
		fb:     &stubFramebuffer{w: 320, h: 240, format: PixelFormatRGB565},
		kbd:    &stubKeyboard{},
		t:      newTinyGoTime(),
		cpu:    NewSimCPU(),
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Input() Input     { return tinyGoInput{kbd: h.kbd} }
func (h *tinyGoHAL) Time() Time       { return h.t }
func (h *tinyGoHAL) CPU() CPU         { return h.cpu }
