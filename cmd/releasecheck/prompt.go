package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// confirm asks question and reads one line from in. Only "y" (any case)
// counts as yes; EOF or a read error counts as no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	_, _ = fmt.Fprint(out, question)
	if in == nil {
		_, _ = fmt.Fprintln(out)
		return false
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
