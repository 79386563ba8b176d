package uifmt

import "fmt"

// Triple formats per-class integers in L/H/I column order.
func Triple(lo, hi, in int) string {
	return fmt.Sprintf("%3d/%3d/%3d", lo, hi, in)
}

// GBTriple formats per-class memory in L/H/I column order.
func GBTriple(lo, hi, in float64) string {
	return fmt.Sprintf("%6.1f/%6.1f/%6.1f", lo, hi, in)
}

func Ratio(alloc, total int) string {
	return fmt.Sprintf("%d/%d", alloc, total)
}

// Percent truncates toward zero, so 95.9 shows as 95 even though the node
// counts as full.
func Percent(v float64) string {
	return fmt.Sprintf("%3d%%", int(v))
}

func GB(v float64) string {
	return fmt.Sprintf("%8.2f", v)
}

func GBPair(alloc, total float64) string {
	return fmt.Sprintf("%.1fG/%.1fG", alloc, total)
}
