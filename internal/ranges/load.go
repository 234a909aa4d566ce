package ranges

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// bucketSpec is the YAML form of a single bucket entry.
//
// Bounds accept any YAML integer form; hexadecimal (0x4E00) is the
// conventional spelling in range files.
type bucketSpec struct {
	Name string `yaml:"name"`
	Lo   uint32 `yaml:"lo"`
	Hi   uint32 `yaml:"hi"`
}

// Parse decodes a YAML bucket list into a validated Table.
//
// Expected document shape:
//
//	- name: basic_latin
//	  lo: 0x0020
//	  hi: 0x007F
//	- name: cjk_basic
//	  lo: 0x4E00
//	  hi: 0x9FFF
//
// Entry order in the file becomes the table order.
func Parse(data []byte) (*Table, error) {
	var specs []bucketSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parsing bucket table: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("bucket table is empty")
	}
	buckets := make([]Bucket, len(specs))
	for i, s := range specs {
		buckets[i] = Bucket{
			Name:  s.Name,
			Range: Interval{Lo: rune(s.Lo), Hi: rune(s.Hi)},
		}
	}
	return NewTable(buckets)
}

// Load reads and parses a YAML bucket table file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bucket table %q: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("bucket table %q: %w", path, err)
	}
	return t, nil
}
