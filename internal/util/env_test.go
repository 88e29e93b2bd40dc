package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("TP_TEST_BOOL", "yes")
	if !ParseBoolEnv("TP_TEST_BOOL", false) {
		t.Errorf("expected 'yes' to parse as true")
	}
	t.Setenv("TP_TEST_BOOL", "off")
	if ParseBoolEnv("TP_TEST_BOOL", true) {
		t.Errorf("expected 'off' to parse as false")
	}
	t.Setenv("TP_TEST_BOOL", "maybe")
	if !ParseBoolEnv("TP_TEST_BOOL", true) {
		t.Errorf("expected invalid value to fall back to default")
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("TP_TEST_INT", "42")
	if got := ParseIntEnv("TP_TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("TP_TEST_INT", "-3")
	if got := ParseIntEnv("TP_TEST_INT", 7); got != 7 {
		t.Errorf("expected default for non-positive value, got %d", got)
	}
	t.Setenv("TP_TEST_INT", "not-a-number")
	if got := ParseIntEnv("TP_TEST_INT", 7); got != 7 {
		t.Errorf("expected default for invalid value, got %d", got)
	}
}
