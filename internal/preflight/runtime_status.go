package preflight

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Adapter is one DVB adapter directory and the frontend nodes it holds.
type Adapter struct {
	Name      string   `json:"name"`
	Frontends []string `json:"frontends"`
}

// ScanAdapters lists adapterN directories under dir in name order. A
// missing dir yields no adapters and no error.
func ScanAdapters(dir string) ([]Adapter, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var adapters []Adapter
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "adapter") {
			continue
		}
		adapterDir := filepath.Join(dir, entry.Name())
		nodes, err := os.ReadDir(adapterDir)
		if err != nil {
			return nil, err
		}
		adapter := Adapter{Name: entry.Name()}
		for _, node := range nodes {
			if strings.HasPrefix(node.Name(), "frontend") {
				adapter.Frontends = append(adapter.Frontends, filepath.Join(adapterDir, node.Name()))
			}
		}
		sort.Strings(adapter.Frontends)
		adapters = append(adapters, adapter)
	}
	sort.Slice(adapters, func(i, j int) bool { return adapters[i].Name < adapters[j].Name })
	return adapters, nil
}
