package forge

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/dahlia-labs/deployctl/internal/logger"
)

var resultLine = regexp.MustCompile(`^\s*([A-Za-z0-9_]+)=(0x[a-fA-F0-9]+|\d+)\b`)

// ParseOutput collects NAME=value lines where value is hex (0x...) or decimal.
// Later lines win.
func ParseOutput(out string) map[string]string {
	results := make(map[string]string)

	scanner := bufio.NewScanner(strings.NewReader(string(logger.StripANSI([]byte(out)))))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if m := resultLine.FindStringSubmatch(line); m != nil {
			results[m[1]] = m[2]
		}
	}

	return results
}
