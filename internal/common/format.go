package common

import (
	"fmt"
	"strings"
)

// DefaultWidth is the separator width the command surfaces print with.
const DefaultWidth = 80

// PrintHeader prints a titled section opener between separator lines.
func PrintHeader(title string, width int) {
	rule := strings.Repeat("=", width)
	fmt.Println("\n" + rule)
	fmt.Println(title)
	fmt.Println(rule)
}

// PrintFooter closes a section with a summary line.
func PrintFooter(message string, width int) {
	rule := strings.Repeat("=", width)
	fmt.Println("\n" + rule)
	fmt.Println(message)
	fmt.Println(rule + "\n")
}

// PrintBoxSeparator prints a box-drawing divider between sub-sections.
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the box-drawing prefix for a list item.
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}
