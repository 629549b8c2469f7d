package cache

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/ausocean/beadcount/classify"
	"github.com/ausocean/beadcount/pipeline"
)

// Load reads the cache at path, preferring the finalised structured
// document and falling back to the path+".jsonl" sibling for partial
// recovery after a crash mid-run. Missing track_id fields (older runs,
// or a crash before a ball was ever matched) are tolerated.
func Load(path string) (*VideoCache, error) {
	if _, err := os.Stat(path); err == nil {
		return loadStructured(path)
	}
	jsonlPath := path + ".jsonl"
	if _, err := os.Stat(jsonlPath); err == nil {
		return loadJSONL(jsonlPath)
	}
	return nil, &CacheIO{"open", path, os.ErrNotExist}
}

func loadStructured(path string) (*VideoCache, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &CacheIO{"read", path, err}
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &CacheIO{"unmarshal", path, err}
	}

	vc := &VideoCache{
		Metadata: doc.Metadata,
		Config:   doc.Config,
		frames:   make(map[int]pipeline.FrameDetections, len(doc.Frames)),
	}
	for _, fj := range doc.Frames {
		vc.frames[fj.FrameID] = fromFrameJSON(fj)
	}
	return vc, nil
}

// loadJSONL recovers whatever complete lines were flushed before a
// crash. A trailing partial (truncated) line is skipped rather than
// treated as an error.
func loadJSONL(path string) (*VideoCache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &CacheIO{"open", path, err}
	}
	defer f.Close()

	vc := &VideoCache{frames: make(map[int]pipeline.FrameDetections)}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var fj frameJSON
		if err := json.Unmarshal(line, &fj); err != nil {
			// Truncated final line from a mid-write crash: stop, keep
			// everything read so far.
			break
		}
		vc.frames[fj.FrameID] = fromFrameJSON(fj)
	}
	if err := sc.Err(); err != nil {
		return nil, &CacheIO{"scan", path, err}
	}
	return vc, nil
}

func fromFrameJSON(fj frameJSON) pipeline.FrameDetections {
	balls := make([]classify.Ball, len(fj.Balls))
	for i, bj := range fj.Balls {
		b := classify.Ball{
			X:          bj.X,
			Y:          bj.Y,
			RPx:        bj.RPx,
			DiameterMM: bj.DiameterMM,
			Conf:       bj.Conf,
			Class:      classFromLabel(bj.Cls),
		}
		if bj.TrackID != nil {
			b.TrackID = *bj.TrackID
		}
		balls[i] = b
	}
	return pipeline.FrameDetections{FrameID: fj.FrameID, TimestampS: fj.Timestamp, Balls: balls}
}
