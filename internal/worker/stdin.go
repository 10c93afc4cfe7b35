package worker

import (
	"bufio"
	"io"
	"strings"
)

// ReadInputs reads address lists from r. Each line may hold several entries
// separated by commas, semicolons or whitespace. Lines starting with "#" are
// comments. Empty entries are dropped; order and duplicates are preserved.
func ReadInputs(r io.Reader) ([]string, error) {
	var inputs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, strings.FieldsFunc(line, isSeparator)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return inputs, nil
}

func isSeparator(r rune) bool {
	switch r {
	case ',', ';', ' ', '\t', '\r':
		return true
	}
	return false
}
