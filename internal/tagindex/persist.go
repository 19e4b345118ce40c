package tagindex

import "encoding/json"

// edge is the wire form of one (tag, file) association plus any
// unattached, empty tag. snapshot is a flat edge list rather than the
// nested maps held in memory because FileRecord, a struct, cannot be a
// JSON object key; a flat list round-trips exactly and stays
// human-readable on disk, matching the debuggability the teacher's own
// YAML config favors.
type edge struct {
	Tag             string `json:"tag"`
	BackingLocation string `json:"backing_location,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	// HasFile distinguishes a tag registered-but-unattached edge (no file)
	// from an edge for a file whose BackingLocation happens to be empty,
	// which cannot occur in practice but is guarded against explicitly.
	HasFile bool `json:"has_file"`
}

type snapshot struct {
	Edges []edge `json:"edges"`
}

func (idx *Index) persist() error {
	raw, err := json.Marshal(idx.toSnapshot())
	if err != nil {
		return err
	}

	if _, _, err := idx.adapter.LoadRW(); err != nil {
		return err
	}
	return idx.adapter.Store(raw)
}

func (idx *Index) toSnapshot() snapshot {
	var snap snapshot
	for t, files := range idx.tagToFiles {
		if len(files) == 0 {
			snap.Edges = append(snap.Edges, edge{Tag: t})
			continue
		}
		for f := range files {
			snap.Edges = append(snap.Edges, edge{
				Tag:             t,
				BackingLocation: f.BackingLocation,
				DisplayName:     f.DisplayName,
				HasFile:         true,
			})
		}
	}
	return snap
}

func (idx *Index) loadSnapshot(raw []byte) error {
	var snap snapshot
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &snap); err != nil {
			return err
		}
	}

	tagToFiles := make(map[string]map[FileRecord]struct{})
	fileToTags := make(map[FileRecord]map[string]struct{})

	for _, e := range snap.Edges {
		if _, ok := tagToFiles[e.Tag]; !ok {
			tagToFiles[e.Tag] = make(map[FileRecord]struct{})
		}
		if !e.HasFile {
			continue
		}
		f := FileRecord{BackingLocation: e.BackingLocation, DisplayName: e.DisplayName}
		tagToFiles[e.Tag][f] = struct{}{}
		if _, ok := fileToTags[f]; !ok {
			fileToTags[f] = make(map[string]struct{})
		}
		fileToTags[f][e.Tag] = struct{}{}
	}

	idx.tagToFiles = tagToFiles
	idx.fileToTags = fileToTags
	return nil
}
