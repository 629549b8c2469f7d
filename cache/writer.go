package cache

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ausocean/beadcount/config"
	"github.com/ausocean/beadcount/pipeline"
)

// Writer implements the hybrid write path: append_frame streams to a
// sibling *.jsonl file (crash-tolerant), finalise collapses it into a
// single random-access JSON document.
type Writer struct {
	mu         sync.Mutex
	path       string
	jsonlPath  string
	f          *os.File
	bw         *bufio.Writer
	meta       Metadata
	cfg        config.Config
	frameCount int
}

// StartProcessing opens path's *.jsonl sibling for append-writing and
// records the run's metadata/config. path is the eventual finalised
// cache file; the working file is path with ".jsonl" appended.
func StartProcessing(path string, totalFrames int, meta Metadata, cfg config.Config) (*Writer, error) {
	jsonlPath := path + ".jsonl"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &CacheIO{"mkdir", filepath.Dir(path), err}
	}
	f, err := os.Create(jsonlPath)
	if err != nil {
		return nil, &CacheIO{"open", jsonlPath, err}
	}

	meta.TotalFrames = totalFrames
	meta.CreatedAt = time.Now().UTC()
	if meta.RunID == "" {
		meta.RunID = genRunID()
	}

	return &Writer{
		path:      path,
		jsonlPath: jsonlPath,
		f:         f,
		bw:        bufio.NewWriter(f),
		meta:      meta,
		cfg:       cfg,
	}, nil
}

// AppendFrame writes one JSON object per line, UTF-8, LF, flushing after
// each write so the JSONL is always a valid prefix.
func (w *Writer) AppendFrame(fd pipeline.FrameDetections) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fj := frameJSON{
		FrameID:   fd.FrameID,
		Timestamp: round(fd.TimestampS, 3),
		Balls:     toBallJSON(fd),
	}
	enc, err := json.Marshal(fj)
	if err != nil {
		return &CacheIO{"marshal", w.jsonlPath, err}
	}
	if _, err := w.bw.Write(enc); err != nil {
		return &CacheIO{"write", w.jsonlPath, err}
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return &CacheIO{"write", w.jsonlPath, err}
	}
	if err := w.bw.Flush(); err != nil {
		return &CacheIO{"flush", w.jsonlPath, err}
	}
	if err := w.f.Sync(); err != nil {
		return &CacheIO{"sync", w.jsonlPath, err}
	}
	w.frameCount++
	return nil
}

// Finalise writes the target file as a single structured document, then
// deletes the JSONL sibling. A crash before Finalise leaves the JSONL
// intact and loadable via Load.
func (w *Writer) Finalise(frames map[int]pipeline.FrameDetections) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := document{
		Version:  schemaVersion,
		Metadata: w.meta,
		Config:   w.cfg,
		Frames:   make(map[string]frameJSON, len(frames)),
	}
	for id, fd := range frames {
		doc.Frames[strconv.Itoa(id)] = frameJSON{
			FrameID:   fd.FrameID,
			Timestamp: round(fd.TimestampS, 3),
			Balls:     toBallJSON(fd),
		}
	}

	if err := w.f.Close(); err != nil {
		return &CacheIO{"close", w.jsonlPath, err}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &CacheIO{"marshal", w.path, err}
	}
	if err := os.WriteFile(w.path, out, 0o644); err != nil {
		return &CacheIO{"write", w.path, err}
	}
	if err := os.Remove(w.jsonlPath); err != nil {
		return &CacheIO{"remove", w.jsonlPath, err}
	}
	return nil
}
