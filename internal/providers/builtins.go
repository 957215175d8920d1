package providers

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/himena-app/himena/internal/workflow"
)

// Built-in plugin ids. Kept stable: sessions record them next to saved paths.
const (
	PluginText = "builtins:text"
	PluginCSV  = "builtins:csv"
)

// RegisterBuiltins installs the text and CSV providers every installation
// ships with.
func RegisterBuiltins(s *Store) {
	s.RegisterReader(textReader())
	s.RegisterWriter(textWriter())
	s.RegisterReader(csvReader())
	s.RegisterWriter(csvWriter())
}

// textReader reads any file as plain text. Lowest priority: it is the
// fallback when nothing more specific claims the path.
func textReader() ReaderProvider {
	return ReaderProvider{
		Plugin:          PluginText,
		Priority:        -1,
		OutputModelType: "text",
		CanRead:         func(string) bool { return true },
		Read: func(paths []string) (*workflow.DataModel, error) {
			data, err := os.ReadFile(paths[0])
			if err != nil {
				return nil, err
			}
			return &workflow.DataModel{
				Value:            string(data),
				Type:             "text",
				Extensions:       []string{".txt"},
				ExtensionDefault: ".txt",
			}, nil
		},
	}
}

func textWriter() WriterProvider {
	return WriterProvider{
		Plugin:   PluginText,
		Priority: -1,
		CanWrite: func(m *workflow.DataModel, _ string) bool {
			_, ok := m.Value.(string)
			return ok
		},
		Write: func(m *workflow.DataModel, path string) error {
			text, ok := m.Value.(string)
			if !ok {
				return fmt.Errorf("text writer: value is %T, not string", m.Value)
			}
			return os.WriteFile(path, []byte(text), 0o644)
		},
	}
}

// csvReader parses *.csv files into a [][]string table.
func csvReader() ReaderProvider {
	return ReaderProvider{
		Plugin:          PluginCSV,
		Priority:        0,
		OutputModelType: "table",
		CanRead: func(path string) bool {
			return strings.EqualFold(filepath.Ext(path), ".csv")
		},
		Read: func(paths []string) (*workflow.DataModel, error) {
			f, err := os.Open(paths[0])
			if err != nil {
				return nil, err
			}
			defer f.Close()

			rows, err := csv.NewReader(f).ReadAll()
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", paths[0], err)
			}
			return &workflow.DataModel{
				Value:            rows,
				Type:             "table",
				Extensions:       []string{".csv"},
				ExtensionDefault: ".csv",
			}, nil
		},
	}
}

func csvWriter() WriterProvider {
	return WriterProvider{
		Plugin:   PluginCSV,
		Priority: 0,
		CanWrite: func(m *workflow.DataModel, path string) bool {
			_, ok := m.Value.([][]string)
			return ok && strings.EqualFold(filepath.Ext(path), ".csv")
		},
		Write: func(m *workflow.DataModel, path string) error {
			rows, ok := m.Value.([][]string)
			if !ok {
				return fmt.Errorf("csv writer: value is %T, not [][]string", m.Value)
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			w := csv.NewWriter(f)
			if err := w.WriteAll(rows); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
}
