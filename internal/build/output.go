package build

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"

	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/sourcemap"
)

// GeneratedModule is spec.md §6's output record: "{originalModule, path,
// bufferOrContent, size, hash, md5, sha1, type, logs, noWrite?}". md5/sha1
// are SPEC_FULL.md §6.2's supplemented digests — named explicitly in
// spec.md §6 Outputs but left to stdlib crypto/md5 and crypto/sha1 since
// no ecosystem library in the retrieved pack replaces a content digest.
type GeneratedModule struct {
	OriginalModule *module.Module
	Path           string
	Content        string
	Size           int64
	Hash           uint64
	MD5            string
	SHA1           string
	Type           string
	Logs           []module.LogEntry
	NoWrite        bool

	// SourceMap is the composite map for this output, whose file equals
	// the output path. internal/bundler.Emit builds one for every bundle,
	// entry and common alike; there is no per-module opt-in that turns it
	// off.
	SourceMap *sourcemap.Builder
}

// Outputs converts every EmittedBundle in r into the GeneratedModule
// records spec.md §6 names as the build's public output, one per bundle
// (entry and common alike). A common bundle has no entry module, so its
// record has a nil OriginalModule, a zero Hash, no logs, and NoWrite
// false.
func (r *Result) Outputs() []GeneratedModule {
	var out []GeneratedModule
	for _, e := range r.Entries {
		out = append(out, e.output())
	}
	for _, e := range r.Common {
		out = append(out, e.output())
	}
	return out
}

func (e *EmittedBundle) output() GeneratedModule {
	var original *module.Module
	var logs []module.LogEntry
	noWrite := false
	if e.Bundle.EntryModule != nil {
		original = e.Bundle.EntryModule
		logs = original.Logs()
		noWrite = original.NoWrite
	}

	sum := md5.Sum([]byte(e.Content))
	shaSum := sha1.Sum([]byte(e.Content))

	out := GeneratedModule{
		OriginalModule: original,
		Path:           e.Bundle.ID,
		Content:        e.Content,
		Size:           int64(len(e.Content)),
		MD5:            hex.EncodeToString(sum[:]),
		SHA1:           hex.EncodeToString(shaSum[:]),
		Type:           "text/javascript",
		Logs:           logs,
		NoWrite:        noWrite,
		SourceMap:      e.SourceMap,
	}
	if original != nil {
		out.Hash = original.Hash()
	}
	return out
}
