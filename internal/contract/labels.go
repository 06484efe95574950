package contract

import (
	"bufio"
	"os"
	"regexp"
	"strings"
	"sync"
)

var actionLabelRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*_[A-Za-z][A-Za-z0-9]*$`)

// MasterLabels are the canonical connector and deeplink action labels.
type MasterLabels struct {
	Connector map[string]bool
	Deeplink  map[string]bool
}

var (
	masterMu   sync.Mutex
	masterPath string
	masterOnce = new(sync.Once)
	master     MasterLabels
)

// SetMasterLabelsPath points the label loader at a master schema document.
// The document is read lazily on the first Labels call after this.
func SetMasterLabelsPath(path string) {
	masterMu.Lock()
	defer masterMu.Unlock()
	masterPath = path
	masterOnce = new(sync.Once)
	master = MasterLabels{}
}

// Labels returns the master action labels, reading the document once. A
// missing or unreadable document yields empty sets.
func Labels() MasterLabels {
	masterMu.Lock()
	once, path := masterOnce, masterPath
	masterMu.Unlock()

	once.Do(func() {
		labels := loadMasterLabels(path)
		masterMu.Lock()
		master = labels
		masterMu.Unlock()
	})

	masterMu.Lock()
	defer masterMu.Unlock()
	return master
}

func loadMasterLabels(path string) MasterLabels {
	labels := MasterLabels{Connector: map[string]bool{}, Deeplink: map[string]bool{}}
	if path == "" {
		return labels
	}
	f, err := os.Open(path)
	if err != nil {
		return labels
	}
	defer f.Close()

	section := ""
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.Contains(line, "20. Connector Training spec"):
			section = "connector"
			continue
		case strings.Contains(line, "21. DEEPLINK CAPABILITY") && !strings.Contains(line, "TRAINING"):
			if section == "connector" {
				section = ""
			}
			continue
		case strings.Contains(line, "22. DEEPLINK CAPABILITY TRAINING SPEC"):
			section = "deeplink"
			continue
		case strings.Contains(line, "END OF MASTER SPEC"):
			section = ""
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "=") || strings.ContainsAny(line, ": ") {
			continue
		}
		if !actionLabelRE.MatchString(line) {
			continue
		}
		switch section {
		case "connector":
			labels.Connector[line] = true
		case "deeplink":
			labels.Deeplink[line] = true
		}
	}
	return labels
}
