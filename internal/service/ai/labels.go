package ai

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultLabels are the classes of the aerial dataset the bundled model was trained on.
var DefaultLabels = []string{"Drone", "Helicopter", "AirPlane"}

// LoadLabels reads one class name per line; blank lines are ignored.
func LoadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if label := strings.TrimSpace(scanner.Text()); label != "" {
			labels = append(labels, label)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}

	return labels, nil
}
