package validate

import (
	"testing"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	Start    string `validate:"clock"`
	Timezone string `validate:"timezone"`
	Slug     string `validate:"slug"`
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	if err := RegisterOn(v); err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	return v
}

func TestValidRules(t *testing.T) {
	v := newValidator(t)
	ok := []sample{
		{Start: "09:00", Timezone: "Europe/Berlin", Slug: "intro-call"},
		{Start: "24:00", Timezone: "UTC", Slug: "a1_b2"},
		{Start: "23:59:00", Timezone: "America/New_York", Slug: "x"},
	}
	for _, s := range ok {
		if err := v.Struct(s); err != nil {
			t.Errorf("期望 %+v 通过校验，实际 %v", s, err)
		}
	}
}

func TestInvalidRules(t *testing.T) {
	v := newValidator(t)
	bad := []sample{
		{Start: "9:00", Timezone: "UTC", Slug: "ok"},
		{Start: "24:30", Timezone: "UTC", Slug: "ok"},
		{Start: "10:00", Timezone: "Mars/Olympus", Slug: "ok"},
		{Start: "10:00", Timezone: "Local", Slug: "ok"},
		{Start: "10:00", Timezone: "UTC", Slug: "Bad Slug"},
		{Start: "10:00", Timezone: "UTC", Slug: "-lead"},
	}
	for _, s := range bad {
		if err := v.Struct(s); err == nil {
			t.Errorf("期望 %+v 校验失败", s)
		}
	}
}
