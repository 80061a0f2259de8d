package frame

// WrapRows returns how many physical rows a line of visible width n occupies
// on a terminal width columns wide. A width of zero or less means the width
// is unknown, so nothing wraps.
func WrapRows(n, width int) int {
	if width <= 0 || n <= 0 {
		return 1
	}
	return (n + width - 1) / width
}

// LastRowColumn returns the column, counted from the start of the line's last
// physical row, of the position just past the line's final character. The
// result equals width when the text exactly fills its last row.
func LastRowColumn(n, width int) int {
	if width <= 0 {
		return n
	}
	return n - width*(WrapRows(n, width)-1)
}
