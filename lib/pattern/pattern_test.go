package pattern

import (
	"encoding/json"
	"testing"

	"dev.acmcsuf.com/pixeld/lib/xcolor"
	"github.com/google/go-cmp/cmp"
)

func assertEq[T any](t *testing.T, expected, actual T, opts ...cmp.Option) {
	t.Helper()

	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		t.Errorf("unexpected diff (-want +got):\n%s", diff)
	}
}

func TestHueWheelPrimaries(t *testing.T) {
	tests := []struct {
		pos  uint8
		want xcolor.RGB
	}{
		{0, xcolor.Red},
		{85, xcolor.Green},
		{170, xcolor.Blue},
		{255, xcolor.Red},
		{1, xcolor.RGB{R: 252, G: 3, B: 0}},
		{84, xcolor.RGB{R: 3, G: 252, B: 0}},
		{100, xcolor.RGB{R: 0, G: 210, B: 45}},
		{200, xcolor.RGB{R: 90, G: 0, B: 165}},
	}

	for _, test := range tests {
		assertEq(t, test.want, HueWheel(test.pos))
	}
}

func TestHueWheelSegments(t *testing.T) {
	for p := 0; p < 256; p++ {
		pos := uint8(p)
		c := HueWheel(pos)

		var active [2]uint8
		var idle uint8
		switch {
		case pos < 85:
			active, idle = [2]uint8{c.R, c.G}, c.B
		case pos < 170:
			active, idle = [2]uint8{c.G, c.B}, c.R
		default:
			active, idle = [2]uint8{c.B, c.R}, c.G
		}

		if idle != 0 {
			t.Errorf("position %d: idle channel is %d, want 0 (%v)", p, idle, c)
		}
		if sum := int(active[0]) + int(active[1]); sum != 255 {
			t.Errorf("position %d: active channels sum to %d, want 255 (%v)", p, sum, c)
		}
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		step uint8
		want Kind
	}{
		{0, Wave},
		{49, Wave},
		{50, Solid},
		{99, Solid},
		{100, Chase},
		{150, Sparkle},
		{199, Sparkle},
		{200, Wave},
		{250, Solid},
		{255, Solid},
	}

	for _, test := range tests {
		if got := Select(test.step); got != test.want {
			t.Errorf("Select(%d) = %v, want %v", test.step, got, test.want)
		}
	}
}

func TestSelectPeriodic(t *testing.T) {
	for step := 0; step+200 < 256; step++ {
		a, b := Select(uint8(step)), Select(uint8(step+200))
		if a != b {
			t.Errorf("Select(%d) = %v but Select(%d) = %v", step, a, step+200, b)
		}
	}
}

func TestRenderSolid(t *testing.T) {
	strip := make([]xcolor.RGB, 8)
	Render(strip, Solid, 60, 0)

	for i, c := range strip {
		if c != xcolor.Red {
			t.Errorf("LED %d = %v, want red", i, c)
		}
		if w := c.Pack(); w != 0x00FF00 {
			t.Errorf("LED %d packs to %#06x, want 0x00ff00", i, w)
		}
	}
}

func TestRenderWave(t *testing.T) {
	strip := make([]xcolor.RGB, 4)
	Render(strip, Wave, 0, 10)

	want := []xcolor.RGB{
		HueWheel(10),
		HueWheel(10 + 63),
		HueWheel(10 + 127),
		HueWheel(uint8(10 + 191)),
	}
	assertEq(t, want, strip)

	// The offset wraps around instead of saturating.
	offset := uint8(250)
	Render(strip, Wave, 0, offset)
	assertEq(t, HueWheel(offset+191), strip[3])
}

func TestRenderChase(t *testing.T) {
	const n = 8
	strip := make([]xcolor.RGB, n)

	for s := 100; s < 150; s++ {
		step := uint8(s)
		Render(strip, Chase, step, 42)

		k := int(step/5) % n
		for i, c := range strip {
			if i == k {
				if c != HueWheel(42) {
					t.Errorf("step %d: lit LED %d = %v, want %v", s, i, c, HueWheel(42))
				}
				continue
			}
			if c != xcolor.Black {
				t.Errorf("step %d: LED %d = %v, want black", s, i, c)
			}
		}
	}
}

func TestRenderSparkle(t *testing.T) {
	for _, n := range []int{1, 7, 8, 17, 60} {
		strip := make([]xcolor.RGB, n)
		for s := 0; s < 256; s++ {
			step := uint8(s)
			Render(strip, Sparkle, step, 0)

			lit := int(uint8(step*17)) % n
			if got := SparkleIndex(step, n); got != lit {
				t.Fatalf("n=%d step=%d: SparkleIndex = %d, want %d", n, s, got, lit)
			}

			var white int
			for i, c := range strip {
				switch {
				case i == lit && c == xcolor.White:
					white++
				case c != xcolor.Black:
					t.Fatalf("n=%d step=%d: LED %d = %v", n, s, i, c)
				}
			}
			if white != 1 {
				t.Fatalf("n=%d step=%d: %d white LEDs, want 1", n, s, white)
			}
		}
	}
}

func TestRenderOverwrites(t *testing.T) {
	strip := []xcolor.RGB{xcolor.Cyan, xcolor.Cyan, xcolor.Cyan}
	Render(strip, Chase, 0, 0)
	assertEq(t, []xcolor.RGB{xcolor.Red, xcolor.Black, xcolor.Black}, strip)

	Render(nil, Wave, 0, 0) // must not panic
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k, err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v", k, got)
		}
	}

	if _, err := ParseKind("rainbow"); err == nil {
		t.Error("expected error for unknown pattern")
	}
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Kind{"pattern": Chase})
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, `{"pattern":"chase"}`, string(b))

	var v struct{ Pattern Kind }
	if err := json.Unmarshal([]byte(`{"Pattern":"sparkle"}`), &v); err != nil {
		t.Fatal(err)
	}
	assertEq(t, Sparkle, v.Pattern)
}
