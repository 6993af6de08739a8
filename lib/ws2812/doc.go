// Package ws2812 generates the WS2812 (NeoPixel) one-wire waveform.
//
// The encoder is a small interpreter for RP2040 PIO instruction words running
// the classic four-instruction WS2812 program. Each bit is sent as a high
// pulse followed by a low pulse with a constant total period of
// T1+T2+T3 clock cycles:
//
//	bit 1: high T1+T2, low T3
//	bit 0: high T1,    low T2+T3
//
// Words are pulled from a Source 24 bits at a time, most significant bit
// first, and consecutive words are sent back to back. When the Source runs dry
// the line is held low, which the receiving LEDs treat as a latch once it
// lasts longer than the reset time.
//
// Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/WS2812B.pdf
package ws2812
