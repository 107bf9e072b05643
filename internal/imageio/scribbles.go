package imageio

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/banshee-data/channelkde/internal/kde"
)

// scribbleFile is the on-disk scribble format:
//
//	{"scribbles": [{"label": "foreground", "pixels": [[x, y], ...]}, ...]}
type scribbleFile struct {
	Scribbles []scribbleJSON `json:"scribbles"`
}

type scribbleJSON struct {
	Label  string   `json:"label"`
	Pixels [][]int `json:"pixels"`
}

// ReadScribbles parses scribble annotations from r.
func ReadScribbles(r io.Reader) ([]kde.Scribble, error) {
	var f scribbleFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse scribbles JSON: %w", err)
	}

	out := make([]kde.Scribble, 0, len(f.Scribbles))
	for i, s := range f.Scribbles {
		var background bool
		switch s.Label {
		case kde.LabelForeground:
		case kde.LabelBackground:
			background = true
		default:
			return nil, fmt.Errorf("scribble %d: unknown label %q", i, s.Label)
		}
		pixels := make([]image.Point, len(s.Pixels))
		for j, p := range s.Pixels {
			if len(p) != 2 {
				return nil, fmt.Errorf("scribble %d: pixel %d has %d coordinates, want 2", i, j, len(p))
			}
			pixels[j] = image.Pt(p[0], p[1])
		}
		out = append(out, kde.Scribble{Background: background, Pixels: pixels})
	}
	return out, nil
}

// LoadScribbles reads scribble annotations from a JSON file.
func LoadScribbles(path string) ([]kde.Scribble, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scribbles: %w", err)
	}
	defer f.Close()
	return ReadScribbles(f)
}
