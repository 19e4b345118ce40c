// Package ingest bulk-imports an existing directory subtree into the tag
// index, grounded on the original source's addTagsToDir walker.
package ingest

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/santileortiz/dhtfs/internal/logger"
	"github.com/santileortiz/dhtfs/internal/tagindex"
)

// Options controls the ingestion walk, mirroring §4.6's flag set.
type Options struct {
	Recursive                bool
	IncludeHiddenDirs        bool
	IncludeHiddenFiles       bool
	ExcludeDirs              []string
	TagByPath                bool
	TagByMime                bool
	IncludeOriginalPathPrefix bool
}

// Walk imports every regular file under dir, depth-first pre-order,
// attaching tags to each FileRecord per opts, then committing them to idx.
// mountRoot is the tagfs mount root; BackingLocation is stored relative to
// it, matching the convention every other package uses. dir need not be
// under mountRoot's subtree for TagByPath purposes, but must be on the
// same filesystem so a relative path exists.
// The log handle is explicit, per spec.md §9's replacement for pervasive
// process-wide logging.
func Walk(idx *tagindex.Index, log *logger.Logger, mountRoot, dir string, explicitTags []string, opts Options) error {
	mountRoot = filepath.Clean(mountRoot)
	dir = filepath.Clean(dir)

	return walkDir(idx, log, mountRoot, dir, dir, explicitTags, opts)
}

func walkDir(idx *tagindex.Index, log *logger.Logger, mountRoot, root, current string, explicitTags []string, opts Options) error {
	entries, err := os.ReadDir(current)
	if err != nil {
		log.Warnf("ingest: skipping unreadable directory %s: %v", current, err)
		return nil
	}

	var files []string
	var dirs []string
	for _, e := range entries {
		name := e.Name()
		if !opts.IncludeHiddenDirs && e.IsDir() && isHidden(name) {
			continue
		}
		if !opts.IncludeHiddenFiles && !e.IsDir() && isHidden(name) {
			continue
		}
		if e.IsDir() {
			if contains(opts.ExcludeDirs, name) {
				continue
			}
			dirs = append(dirs, name)
			continue
		}
		if e.Type().IsRegular() {
			files = append(files, name)
		}
	}

	if len(files) > 0 {
		tags := append([]string(nil), explicitTags...)

		if opts.TagByPath {
			prefixBase := root
			if opts.IncludeOriginalPathPrefix {
				prefixBase = string(filepath.Separator)
			}
			rel, err := filepath.Rel(prefixBase, current)
			if err == nil && rel != "." {
				tags = append(tags, strings.Split(rel, string(filepath.Separator))...)
			}
		}

		records := make([]tagindex.FileRecord, 0, len(files))
		for _, f := range files {
			abs := filepath.Join(current, f)
			rel, err := filepath.Rel(mountRoot, abs)
			if err != nil {
				return err
			}
			records = append(records, tagindex.FileRecord{
				BackingLocation: rel,
				DisplayName:     f,
			})
		}

		if err := idx.Attach(records, tags); err != nil {
			return err
		}
		log.Infof("ingest: attached tags %v to %d files in %s", tags, len(records), current)

		if opts.TagByMime {
			for _, rec := range records {
				mimeTags := mimeTags(rec.DisplayName)
				if len(mimeTags) == 0 {
					continue
				}
				if err := idx.Attach([]tagindex.FileRecord{rec}, mimeTags); err != nil {
					return err
				}
				log.Infof("ingest: attached mime tags %v to %s", mimeTags, rec.DisplayName)
			}
		}
	}

	if !opts.Recursive {
		return nil
	}

	for _, d := range dirs {
		if err := walkDir(idx, log, mountRoot, root, filepath.Join(current, d), explicitTags, opts); err != nil {
			return err
		}
	}

	return nil
}

// mimeTags guesses the MIME type from name's extension and splits it on
// "/", e.g. "text/plain" -> ["text", "plain"]. Extension-based guessing
// (stdlib mime.TypeByExtension), not content sniffing, matches the
// original's mimetypes.guess_type.
func mimeTags(name string) []string {
	t := mime.TypeByExtension(filepath.Ext(name))
	if t == "" {
		return nil
	}
	if idx := strings.IndexByte(t, ';'); idx >= 0 {
		t = t[:idx]
	}
	t = strings.TrimSpace(t)
	parts := strings.Split(t, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
