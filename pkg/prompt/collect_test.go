package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-widgets/pkg/widgets"
)

type scriptedDriver struct {
	inputs   map[string]string
	confirms map[string]bool
	selects  map[string]int
	asked    []string
	infos    []string
	err      error
}

func (d *scriptedDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	d.asked = append(d.asked, cfg.Message)
	if d.err != nil {
		return "", d.err
	}
	v, ok := d.inputs[cfg.Message]
	if !ok {
		return cfg.Default, nil
	}
	if cfg.Validator != nil {
		if err := cfg.Validator(v); err != nil {
			return "", err
		}
	}
	return v, nil
}

func (d *scriptedDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	d.asked = append(d.asked, cfg.Message)
	v, ok := d.confirms[cfg.Message]
	if !ok {
		return cfg.Default, nil
	}
	return v, nil
}

func (d *scriptedDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	d.asked = append(d.asked, cfg.Message)
	v, ok := d.selects[cfg.Message]
	if !ok {
		return cfg.DefaultIndex, nil
	}
	return v, nil
}

func (d *scriptedDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	d.asked = append(d.asked, cfg.Message)
	return d.inputs[cfg.Message], nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

func testDefinition() widgets.Definition {
	return widgets.Definition{
		Key: "video",
		Parameters: []widgets.Parameter{
			{Name: "note", Title: "Paste a video url", Type: widgets.TypeInfo},
			{Name: "url", Title: "URL", Value: ""},
			{Name: "autoplay", Title: "Autoplay", Type: widgets.TypeCheckbox, Value: false},
			{Name: "delay", Title: "Delay", Type: widgets.TypeNumeric, Value: 0, When: "{{ autoplay == true }}"},
			{Name: "size", Title: "Size", Type: widgets.TypeSelect, Value: "m", Options: []widgets.Option{
				{Text: "Small", Value: "s"}, {Text: "Medium", Value: "m"}, {Text: "Large", Value: "l"},
			}},
			{Name: "caption", Title: "Caption", Type: widgets.TypeTextarea},
		},
	}
}

func TestCollect_RevealsDependentParameters(t *testing.T) {
	t.Parallel()

	driver := &scriptedDriver{
		inputs:   map[string]string{"URL": "https://vimeo.com/1", "Delay": "3", "Caption": "two\nlines"},
		confirms: map[string]bool{"Autoplay": true},
		selects:  map[string]int{"Size": 2},
	}
	got, err := Collect(context.Background(), driver, testDefinition(), map[string]any{"extra": "kept"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := map[string]any{
		"url":      "https://vimeo.com/1",
		"autoplay": true,
		"delay":    "3",
		"size":     "l",
		"caption":  "two\nlines",
		"extra":    "kept",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Paste a video url"}, driver.infos); diff != "" {
		t.Fatalf("infos mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_SkipsHiddenParameters(t *testing.T) {
	t.Parallel()

	driver := &scriptedDriver{}
	got, err := Collect(context.Background(), driver, testDefinition(), nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if _, ok := got["delay"]; ok {
		t.Fatalf("expected delay to stay unset while autoplay is off")
	}
	if diff := cmp.Diff([]string{"URL", "Autoplay", "Size", "Caption"}, driver.asked); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
	if got["size"] != "m" {
		t.Fatalf("expected default option to be kept, got %#v", got["size"])
	}
}

func TestCollect_Errors(t *testing.T) {
	t.Parallel()

	driver := &scriptedDriver{err: ErrAborted}
	if _, err := Collect(context.Background(), driver, testDefinition(), nil); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}

	driver = &scriptedDriver{
		confirms: map[string]bool{"Autoplay": true},
		inputs:   map[string]string{"Delay": "soon"},
	}
	if _, err := Collect(context.Background(), driver, testDefinition(), nil); err == nil {
		t.Fatalf("expected validation error for non numeric delay")
	}
}

func TestValidators(t *testing.T) {
	t.Parallel()

	if validateColor("#fff") != nil || validateColor("#a1b2c3") != nil || validateColor("") != nil {
		t.Fatalf("expected valid colors to pass")
	}
	if validateColor("red") == nil || validateColor("#ggg") == nil {
		t.Fatalf("expected invalid colors to fail")
	}
	if validateNumber("1.5") != nil || validateNumber("") != nil || validateNumber("x") == nil {
		t.Fatalf("unexpected number validation")
	}
}
