package resources

import (
	"encoding/binary"
	"testing"
)

func TestGetIcon(t *testing.T) {
	data, err := GetIcon()
	if err != nil {
		t.Fatalf("GetIcon failed: %v", err)
	}
	if len(data) < 6 {
		t.Fatalf("icon too short: %d bytes", len(data))
	}
	// ICONDIR: reserved 0, type 1 (icon), at least one image
	if binary.LittleEndian.Uint16(data[0:2]) != 0 || binary.LittleEndian.Uint16(data[2:4]) != 1 {
		t.Errorf("embedded file is not an .ico")
	}
	if binary.LittleEndian.Uint16(data[4:6]) == 0 {
		t.Errorf("icon has no images")
	}
}
