package npd

import (
	"fmt"
	"io"
	"strings"
)

// FormatPlates renders one report line, e.g. "Plate Numbers Found: [ABC123, XYZ789]".
func FormatPlates(plates []string) string {
	return "Plate Numbers Found: [" + strings.Join(plates, ", ") + "]"
}

// PrintPlates writes the report line for plates to w.
func PrintPlates(w io.Writer, plates []string) error {
	_, err := fmt.Fprintln(w, FormatPlates(plates))
	return err
}
