package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Seat IDs are string tokens of the form "seat-<row>-<col>", stable for
// the lifetime of a room's layout.

// SeatID formats a row/column pair as a seat identifier.
func SeatID(row, col int) string {
	return fmt.Sprintf("seat-%d-%d", row, col)
}

// ParseSeatID extracts the row and column from a seat identifier.
func ParseSeatID(id string) (row, col int, err error) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != "seat" {
		return 0, 0, fmt.Errorf("malformed seat id: %q", id)
	}

	row, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed seat id: %q", id)
	}
	col, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed seat id: %q", id)
	}

	if row < 0 || col < 0 {
		return 0, 0, fmt.Errorf("malformed seat id: %q", id)
	}
	return row, col, nil
}

// ValidSeatID reports whether id names a seat inside a rows×cols grid.
func ValidSeatID(id string, rows, cols int) bool {
	row, col, err := ParseSeatID(id)
	if err != nil {
		return false
	}
	return row < rows && col < cols
}
