package models

import "testing"

func TestCategoryIconCoverage(t *testing.T) {
	for _, c := range Categories {
		if c.Icon() == "" {
			t.Errorf("DeviceCategory %q has empty icon", c)
		}
		if _, ok := CategoryIcon[c]; !ok {
			t.Errorf("DeviceCategory %q missing from CategoryIcon", c)
		}
	}
}

func TestCategoryIconUnknownFallback(t *testing.T) {
	got := DeviceCategory("toaster").Icon()
	want := "help-circle"
	if got != want {
		t.Errorf("unknown category icon = %q, want %q", got, want)
	}
}
