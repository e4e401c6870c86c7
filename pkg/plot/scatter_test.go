package plot

import (
	"bytes"
	"math"
	"testing"

	"github.com/polarpath/earthdata/pkg/dataset"
)

func heightsGroup() *dataset.Group {
	return &dataset.Group{
		Name: "heights",
		Path: "/gt1l/heights",
		Variables: []dataset.Variable{
			{
				Name:       "delta_time",
				Dimensions: []dataset.Dimension{{Name: "ph", Len: 4}},
				Values:     []float64{1, 2, 3, 4},
			},
			{
				Name:       "h_ph",
				Dimensions: []dataset.Dimension{{Name: "ph", Len: 4}},
				Values:     []float64{10.5, 11, math.NaN(), 12},
			},
			{
				Name:       "short",
				Dimensions: []dataset.Dimension{{Name: "n", Len: 2}},
				Values:     []float64{0, 1},
			},
			{
				Name:       "labels",
				Dimensions: []dataset.Dimension{{Name: "n", Len: 2}},
				Values:     []string{"a", "b"},
			},
		},
	}
}

func TestScatter(t *testing.T) {
	t.Run("valid pair", func(t *testing.T) {
		p, err := Scatter(heightsGroup(), "delta_time", "h_ph", Config{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Title.Text != "h_ph" {
			t.Errorf("default title = %q, want variable name", p.Title.Text)
		}
		if p.X.Label.Text != "delta_time" || p.Y.Label.Text != "h_ph" {
			t.Errorf("unexpected axis labels: %q, %q", p.X.Label.Text, p.Y.Label.Text)
		}
	})

	t.Run("explicit title", func(t *testing.T) {
		p, err := Scatter(heightsGroup(), "delta_time", "h_ph", Config{Title: "Photon heights"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Title.Text != "Photon heights" {
			t.Errorf("title = %q", p.Title.Text)
		}
	})

	t.Run("missing x variable", func(t *testing.T) {
		if _, err := Scatter(heightsGroup(), "absent", "h_ph", Config{}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("missing y variable", func(t *testing.T) {
		if _, err := Scatter(heightsGroup(), "delta_time", "absent", Config{}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		if _, err := Scatter(heightsGroup(), "delta_time", "short", Config{}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("non-numeric variable", func(t *testing.T) {
		if _, err := Scatter(heightsGroup(), "labels", "short", Config{}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("writes png", func(t *testing.T) {
		var buf bytes.Buffer
		err := Render(heightsGroup(), "delta_time", "h_ph", Config{WidthInches: 4, HeightInches: 3}, &buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		magic := []byte{0x89, 'P', 'N', 'G'}
		if buf.Len() < len(magic) || !bytes.Equal(buf.Bytes()[:len(magic)], magic) {
			t.Errorf("output does not start with the PNG signature")
		}
	})

	t.Run("propagates scatter error", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Render(heightsGroup(), "absent", "h_ph", Config{}, &buf); err == nil {
			t.Fatal("expected error")
		}
		if buf.Len() != 0 {
			t.Error("no output expected on error")
		}
	})
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}
	c.applyDefaults()
	if c.WidthInches != 8 || c.HeightInches != 6 {
		t.Errorf("defaults = %gx%g, want 8x6", c.WidthInches, c.HeightInches)
	}

	c = Config{WidthInches: 10, HeightInches: 2}
	c.applyDefaults()
	if c.WidthInches != 10 || c.HeightInches != 2 {
		t.Error("explicit sizes must be kept")
	}
}
